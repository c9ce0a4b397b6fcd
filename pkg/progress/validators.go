package progress

type UpdateProgressPayload struct {
	CurrentPage *int `json:"current_page" validate:"required"`
}

type ListCurrentlyReadingQuery struct {
	Limit int `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=50"`
}

type ListHistoryQuery struct {
	Limit    int  `query:"limit" json:"limit,omitempty" default:"20" validate:"min=1,max=100"`
	// DaysBack narrows the history to recent reads. Absent means all of it.
	DaysBack *int `query:"days_back" json:"days_back,omitempty" validate:"omitnil,min=1,max=3650"`
}

type ListFinishedQuery struct {
	Limit int `query:"limit" json:"limit,omitempty" default:"20" validate:"min=1,max=100"`
}
