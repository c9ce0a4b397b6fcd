package config

// ReaderSettings are the server-side limits a reading client needs to know
// about when requesting content.
type ReaderSettings struct {
	WordsPerPage     int `json:"words_per_page"`
	MaxPageRangeSpan int `json:"max_page_range_span"`
}

type Service struct {
	config *Config
}

func NewService(cfg *Config) *Service {
	return &Service{config: cfg}
}

func (s *Service) RetrieveReaderSettings() *ReaderSettings {
	return &ReaderSettings{
		WordsPerPage:     s.config.WordsPerPage,
		MaxPageRangeSpan: s.config.MaxPageRangeSpan,
	}
}
