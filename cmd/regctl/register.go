package main

import (
	"fmt"

	"registration-service/internal/regclient"
	"registration-service/internal/registration"

	"github.com/spf13/cobra"
)

var registerInput struct {
	fullName      string
	email         string
	phone         string
	qualification string
	passingYear   string
	service       string
	course        string
	message       string
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Submit a registration",
	Long: `Submit a registration. Input is validated locally with the same rules as
the server before anything is sent; server errors are shown verbatim.

Examples:
  regctl register --full-name "Asha Rao" --email asha@example.com \
    --phone 9876543210 --service EduTech --course "Online Tutoring"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		api, err := newAPIClient()
		if err != nil {
			return err
		}
		client := regclient.New(api)

		ctx, cancel := commandContext(cmd)
		defer cancel()

		if _, err := client.LoadCatalog(ctx); err != nil {
			cliLogger().Warn("could not load catalog, skipping service/course check", "error", err)
		}

		in := registration.Input{
			FullName:      registerInput.fullName,
			Email:         registerInput.email,
			Phone:         registerInput.phone,
			Qualification: registerInput.qualification,
			PassingYear:   registration.ParseYear(registerInput.passingYear),
			Service:       registerInput.service,
			Course:        registerInput.course,
			Message:       registerInput.message,
		}

		reg, err := client.Submit(ctx, in)
		if err != nil {
			return fail(cmd, regclient.Message(err), regclient.FieldErrors(err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", reg.Email, reg.ID)
		return nil
	},
}

func init() {
	f := registerCmd.Flags()
	f.StringVar(&registerInput.fullName, "full-name", "", "applicant's full name")
	f.StringVar(&registerInput.email, "email", "", "email address")
	f.StringVar(&registerInput.phone, "phone", "", "10 digit phone number")
	f.StringVar(&registerInput.qualification, "qualification", "", "highest qualification")
	f.StringVar(&registerInput.passingYear, "passing-year", "", "passing year (defaults to the current year)")
	f.StringVar(&registerInput.service, "service", "", "service")
	f.StringVar(&registerInput.course, "course", "", "course under the service")
	f.StringVar(&registerInput.message, "message", "", "optional message")
	rootCmd.AddCommand(registerCmd)
}
