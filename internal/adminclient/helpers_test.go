package adminclient

import "registration-service/internal/registration"

func validInput() registration.Input {
	return registration.Input{
		FullName:    "Asha Rao",
		Email:       "asha@example.com",
		Phone:       "9876543210",
		PassingYear: registration.YearOf(2021),
		Service:     "EduTech",
		Course:      "Online Tutoring",
	}
}
