package domain

// PagedResponse представляет страницу списка в ответе API
type PagedResponse struct {
	Items      interface{} `json:"items"`       // Элементы на текущей странице
	TotalItems int         `json:"total_items"` // Общее число элементов
	Page       int         `json:"page"`        // Номер текущей страницы
	PageSize   int         `json:"page_size"`   // Размер страницы
	TotalPages int         `json:"total_pages"` // Общее число страниц
}

// NewPagedResponse собирает страницу, вычисляя число страниц
func NewPagedResponse(items interface{}, total, page, pageSize int) *PagedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return &PagedResponse{
		Items:      items,
		TotalItems: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
