package pages

// PageQuery leaves Page nil when the parameter is absent. An explicit
// value below 1 is passed through so GetPage can reject it.
type PageQuery struct {
	Page *int `query:"page" json:"page,omitempty"`
}

type PageRangeQuery struct {
	Start int `query:"start" json:"start" validate:"required,min=1"`
	End   int `query:"end" json:"end" validate:"required,gtefield=Start"`
}

type SearchQuery struct {
	Q     string `query:"q" json:"q" mod:"trim" validate:"notblank,max=200"`
	Limit int    `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=50"`
}

type ListPagesQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}
