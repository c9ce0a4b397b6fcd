package favorites

type ListFavoritesQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"20" validate:"min=1,max=100"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}
