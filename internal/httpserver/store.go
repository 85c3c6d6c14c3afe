package httpserver

import (
	"log"
	"net/http"

	"frunk-store/internal/catalog"
	"frunk-store/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

type productResponse struct {
	catalog.Product
	DisplayPrice string                `json:"displayPrice"`
	Sizes        []string              `json:"sizes"`
	Colors       []catalog.ColorOption `json:"colors"`
}

func toProductResponse(p catalog.Product) productResponse {
	return productResponse{
		Product:      p,
		DisplayPrice: catalog.FormatPrice(p.Price),
		Sizes:        catalog.AvailableSizes(p),
		Colors:       catalog.AvailableColors(p),
	}
}

func listProductsHandler(cat CatalogReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		products := cat.Products()
		if category := c.Query("category"); category != "" {
			products = cat.ByCategory(catalog.Category(category))
		}
		out := make([]productResponse, 0, len(products))
		for _, p := range products {
			out = append(out, toProductResponse(p))
		}
		c.JSON(http.StatusOK, gin.H{"products": out})
	}
}

func productHandler(cat CatalogReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := cat.ProductBySlug(c.Param("slug"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusOK, toProductResponse(p))
	}
}

type checkoutRequest struct {
	Items []checkout.Line `json:"items"`
	Email string          `json:"email"`
}

func checkoutHandler(logger *log.Logger, svc CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		in := checkout.Input{Items: req.Items, Email: req.Email}
		if u := currentUser(c); u != nil {
			id := u.ID
			in.UserID = &id
		}
		res, err := svc.Start(c.Request.Context(), in)
		if err != nil {
			writeError(c, logger, "checkout", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func confirmationHandler(logger *log.Logger, svc PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		conf, err := svc.Confirmation(c.Request.Context(), c.Query("session_id"))
		if err != nil {
			writeError(c, logger, "order confirmation", err)
			return
		}
		c.JSON(http.StatusOK, conf)
	}
}
