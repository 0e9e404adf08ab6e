package athlete

// ListParams configures paginated, sortable, filterable athlete queries.
type ListParams struct {
	Page     int
	PageSize int
	Sort     string
	Order    string
	Search   string
	Gender   string
}

// Validate normalizes and validates list parameters.
func (p *ListParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 200 {
		p.PageSize = 50
	}
	switch p.Sort {
	case "last_name", "first_name", "birth_year", "created_at", "updated_at":
		// valid
	default:
		p.Sort = "last_name"
	}
	if p.Order != "desc" {
		p.Order = "asc"
	}
	if !ValidGender(p.Gender) {
		p.Gender = ""
	}
}
