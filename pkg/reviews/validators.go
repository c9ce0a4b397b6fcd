package reviews

type CreateReviewPayload struct {
	Rating  *int    `json:"rating" validate:"required"`
	Title   *string `json:"title,omitempty" mod:"trim" validate:"omitempty,max=200"`
	Content *string `json:"content,omitempty" mod:"trim" validate:"omitempty,max=10000"`
}

type UpdateReviewPayload struct {
	Rating  *int    `json:"rating,omitempty"`
	Title   *string `json:"title,omitempty" mod:"trim" validate:"omitempty,max=200"`
	Content *string `json:"content,omitempty" mod:"trim" validate:"omitempty,max=10000"`
}

type ListReviewsQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"20" validate:"min=1,max=100"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type ListUserReviewsQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=50"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}
