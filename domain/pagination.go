package domain

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

type ListParams struct {
	Offset int `query:"offset"`
	Limit  int `query:"limit"`
}

// Normalize clamps offset/limit into the supported range.
func (p ListParams) Normalize() ListParams {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
}
