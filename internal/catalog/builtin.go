package catalog

import "poststudio/internal/models"

// Builtin returns the stock template table. A fresh slice is returned on each
// call so callers cannot alter the source data.
func Builtin() []models.Template {
	return []models.Template{
		{Key: "watermark", ExternalID: "x9jxylt4vx2x0", Name: "Marca d'Água", Description: "Template para aplicar marca d'água", Category: models.CategoryWatermark, Width: 1200, Height: 1200},
		{Key: "stories_1", ExternalID: "g7wi0hogpxx5c", Name: "Stories - Modelo 1", Description: "Template para Stories", Category: models.CategoryStory, Width: 1080, Height: 1920},
		{Key: "reels_feed_2", ExternalID: "ltgftf7ybxcqb", Name: "Reels Feed - Modelo 2", Description: "Template para Reels e Feed", Category: models.CategoryReels, Width: 1080, Height: 1920},
		{Key: "reels_feed_3", ExternalID: "cjnpj919alht9", Name: "Reels Feed - Modelo 3", Description: "Template para Reels e Feed", Category: models.CategoryReels, Width: 1080, Height: 1920},
		{Key: "feed_1", ExternalID: "7vqi5vgmvwgfm", Name: "Feed - Modelo 1", Description: "Template para Feed", Category: models.CategoryFeed, Width: 1200, Height: 1200},
		{Key: "feed_1_red", ExternalID: "qe0qo74vbrgxe", Name: "Feed - Modelo 1 (Red)", Description: "Template para Feed - Versão Vermelha", Category: models.CategoryFeed, Width: 1200, Height: 1200},
		{Key: "watermark1", ExternalID: "1wubmwdwwturf", Name: "Watermark1", Description: "Template para Watermark", Category: models.CategoryFeed, Width: 1200, Height: 1200},
		{Key: "feed_2_white", ExternalID: "ye0bmj6dgoneq", Name: "Feed - Modelo 2 (White)", Description: "Template para Feed - Versão Branca", Category: models.CategoryFeed, Width: 1200, Height: 1200},
		{Key: "feed_3_black", ExternalID: "7mfd5rkx2hmvw", Name: "Feed - Modelo 3 (Black)", Description: "Template para Feed - Versão Preta", Category: models.CategoryFeed, Width: 1200, Height: 1200},
	}
}
