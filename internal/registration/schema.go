package registration

import "registration-service/internal/db"

const TableName = "registrations"

func Models() []interface{} {
	return []interface{}{(*Registration)(nil)}
}

func Indexes() []db.Index {
	return []db.Index{
		{
			Model:   (*Registration)(nil),
			Name:    "registrations_created_at_idx",
			Columns: []string{"created_at", "id"},
		},
		{
			Model:   (*Registration)(nil),
			Name:    "registrations_service_idx",
			Columns: []string{"service"},
		},
	}
}
