package transfer

import "github.com/maheshrc27/curapost/internal/models"

type ProductDetail struct {
	*models.Product
	Media []*models.Media `json:"media"`
	Posts []*models.Post  `json:"posts"`
}

type PostDetail struct {
	*models.Post
	Media []*models.Media `json:"media"`
}
