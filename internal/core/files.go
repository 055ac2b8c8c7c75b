package core

func init() {
	Register(FileSpec{
		Kind:  KindOfficers,
		Label: "Officers",
		Order: 10,
		Required: []string{
			ColID, ColPartitionName, ColPartitionRegion,
		},
		Optional: []string{
			"last_name", "first_name", "middle_initial", "suffix",
			"race", "gender", "employment_date", "birth_year",
			"unique_identifier",
		},
		Ignored: []string{
			"badge_number", "job_title", "most_recent_salary",
			"last_employment_date", "last_employment_notice",
		},
		Aliases: map[string]string{
			"department_name":            ColPartitionName,
			"department_state":           ColPartitionRegion,
			"unique_internal_identifier": "unique_identifier",
		},
		OptionalWhenForced: []string{ColPartitionName, ColPartitionRegion},
	})

	Register(FileSpec{
		Kind:  KindAssignments,
		Label: "Assignments",
		Order: 20,
		Required: []string{
			ColID, ColOfficerID, "role_title",
		},
		Optional: []string{
			"badge", "unit_id", "unit_name", "start_date", "end_date",
			"officer_external_id",
		},
		Aliases: map[string]string{
			"job_title":    "role_title",
			"badge_number": "badge",
			"star_no":      "badge",
			"star_date":    "start_date",
			"resign_date":  "end_date",
		},
		OptionalWhenOverwriting: []string{ColID},
	})

	Register(FileSpec{
		Kind:  KindSalaries,
		Label: "Pay records",
		Order: 30,
		Required: []string{
			ColID, ColOfficerID, "amount", "year",
		},
		Optional: []string{
			"overtime_amount", "is_fiscal_year",
		},
		Aliases: map[string]string{
			"salary":       "amount",
			"overtime_pay": "overtime_amount",
		},
	})

	Register(FileSpec{
		Kind:  KindIncidents,
		Label: "Incidents",
		Order: 40,
		Required: []string{
			ColID, ColPartitionName, ColPartitionRegion,
		},
		Optional: []string{
			"date", "time", "report_number", "description",
			"street_name", "cross_street1", "cross_street2", "city", "state", "zip_code",
			"creator_id", "last_updated_id",
			ColOfficerIDs, "plate_numbers",
		},
		Aliases: map[string]string{
			"department_name":  ColPartitionName,
			"department_state": ColPartitionRegion,
			"license_plates":   "plate_numbers",
		},
	})

	Register(FileSpec{
		Kind:  KindLinks,
		Label: "Links",
		Order: 50,
		Required: []string{
			ColID, "url",
		},
		Optional: []string{
			"title", "category", "description", "author", "user_id",
			ColOfficerIDs, "incident_ids",
		},
		Aliases: map[string]string{
			"link_type": "category",
		},
	})
}
