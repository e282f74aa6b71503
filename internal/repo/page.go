package repo

// Page 分页参数：page 从 1 开始，limit 上限 100
type Page struct {
	Page  int
	Limit int
}

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 12
	}
	return p
}

func (p Page) Offset() int { n := p.Normalize(); return (n.Page - 1) * n.Limit }

// Pages 总页数
func (p Page) Pages(total int64) int {
	n := p.Normalize()
	return int((total + int64(n.Limit) - 1) / int64(n.Limit))
}

// Result 列表响应
type Result[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

func NewResult[T any](items []T, total int64, p Page) Result[T] {
	n := p.Normalize()
	if items == nil {
		items = []T{}
	}
	return Result[T]{Items: items, Total: total, Page: n.Page, Limit: n.Limit, Pages: p.Pages(total)}
}
