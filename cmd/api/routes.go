package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/convertey/convertey-api/internal/config"
	"github.com/convertey/convertey-api/internal/convert"
	"github.com/convertey/convertey-api/internal/middleware"
)

const (
	serviceName    = "convertey-api"
	serviceVersion = "0.1.0"
)

// legacyFamilies are the only sources POST /api/convert accepts.
var legacyFamilies = []convert.Family{convert.FamilyImage, convert.FamilyPDF}

// handleHealth answers the health check.
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// setupRoutes registers the public routes. Both conversion endpoints share
// one handler and differ only in body limit and accepted families.
func setupRoutes(router *gin.Engine, cfg *config.Config, svc *convert.Service, limiter middleware.Limiter) {
	router.GET("/health", handleHealth)

	api := router.Group("/api")
	{
		api.GET("/formats", convert.FormatsHandler(svc.Table()))

		conversions := api.Group("")
		conversions.Use(middleware.RateLimit(limiter))
		{
			conversions.POST("/convert/file", convert.FileHandler(svc, convert.HandlerOptions{
				MaxBodyBytes: convert.MaxBodyBytesFor(svc.MaxFileSize()),
			}))
			conversions.POST("/convert", convert.FileHandler(svc, convert.HandlerOptions{
				MaxBodyBytes: cfg.LegacyMaxBodyBytes,
				Families:     legacyFamilies,
			}))
		}
	}
}
