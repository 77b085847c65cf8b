// Package api provides the REST API server for sci2fb
package api

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sci0tools/sci2fb/pkg/converter"
	"github.com/sci0tools/sci2fb/pkg/converter/devices"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title SCI2FB API
// @version 1.0
// @description API for converting Sierra SCI0 patch resources to Yamaha FB-01 sysex bank files
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port
func StartServer(port int) error {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/convert/pat2syx", handlePatchToSyx)
		v1.POST("/convert/syx2pat", handleSyxToPatch)
		v1.POST("/convert/pat2mid", handlePatchToMIDI)
		v1.GET("/formats", listFormats)
		v1.GET("/devices", listDevices)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r.Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "sci2fb",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported file formats and conversion paths
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{"pat", "syx", "midi"},
		"conversions": converter.GetSupportedConversions(),
	})
}

// listDevices godoc
// @Summary List supported devices
// @Description Returns a list of supported synthesizer devices
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]map[string]string
// @Router /api/v1/devices [get]
func listDevices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"devices": []map[string]string{
			{"id": "fb01", "name": "Yamaha FB-01", "description": "4-operator FM sound module"},
		},
	})
}

// handlePatchToSyx godoc
// @Summary Convert a patch resource to FB-01 bank dumps
// @Description Upload an SCI0 patch resource and receive .syx bank dumps. A two-bank resource returns a zip with one file per bank unless a single bank is selected.
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "Patch resource to convert"
// @Param bank query string false "Bank selection: a, b, or both (default both)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert/pat2syx [post]
func handlePatchToSyx(c *gin.Context) {
	data, filename, err := formFile(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	payload, err := converter.NewPatchReader().ParsePatch(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stem := stemOf(filename)
	names := make([]string, payload.BankCount())
	for i := range names {
		names[i] = stem
	}

	banks, err := devices.NewFB01().GenerateBanks(payload, names)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	switch strings.ToLower(c.DefaultQuery("bank", "both")) {
	case "a":
		serveFile(c, banks[0], bankFileName(stem, 0, len(banks) == 2))
	case "b":
		if len(banks) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "patch resource holds a single bank"})
			return
		}
		serveFile(c, banks[1], bankFileName(stem, 1, true))
	case "both":
		if len(banks) == 1 {
			serveFile(c, banks[0], stem+".syx")
			return
		}
		archive, err := zipBanks(stem, banks)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.zip", stem))
		c.Data(http.StatusOK, "application/zip", archive)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "bank must be a, b, or both"})
	}
}

// handleSyxToPatch godoc
// @Summary Rebuild a patch resource from FB-01 bank dumps
// @Description Upload one bank dump (plus an optional second for a two-bank resource) and receive the SCI0 patch resource.
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "Bank dump file"
// @Param file2 formData file false "Second bank dump"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert/syx2pat [post]
func handleSyxToPatch(c *gin.Context) {
	data, filename, err := formFile(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	raw := [][]byte{data}
	if second, _, err := formFile(c, "file2"); err == nil {
		raw = append(raw, second)
	}

	// Each upload may carry one dump or both back to back
	var banks [][]byte
	for _, r := range raw {
		messages, err := converter.SplitSyx(r)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		banks = append(banks, messages...)
	}

	conv := converter.New(devices.NewFB01())
	result, err := conv.SyxToPatch(banks...)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Drop the bank digit from names like song1.syx
	stem := stemOf(filename)
	if n := len(stem); n > 1 && (stem[n-1] == '1' || stem[n-1] == '2') {
		stem = stem[:n-1]
	}
	serveFile(c, result, stem+".pat")
}

// handlePatchToMIDI godoc
// @Summary Convert a patch resource to a MIDI file
// @Description Upload an SCI0 patch resource and receive a Standard MIDI File carrying the bank dumps.
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "Patch resource to convert"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert/pat2mid [post]
func handlePatchToMIDI(c *gin.Context) {
	data, filename, err := formFile(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	stem := stemOf(filename)
	conv := converter.New(devices.NewFB01())
	result, err := conv.PatchToMIDI(data, stem)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	serveFile(c, result, stem+".mid")
}

// formFile pulls one uploaded file out of the multipart form.
func formFile(c *gin.Context, field string) ([]byte, string, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

// stemOf strips the extension from an uploaded filename.
func stemOf(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return "converted"
	}
	return stem
}

// bankFileName names one bank dump download, with the 1/2 digit when the
// dump belongs to a pair.
func bankFileName(stem string, index int, paired bool) string {
	if paired {
		return fmt.Sprintf("%s%d.syx", stem, index+1)
	}
	return stem + ".syx"
}

// serveFile sends binary data as a download.
func serveFile(c *gin.Context, data []byte, filename string) {
	contentType := "application/octet-stream"
	if strings.HasSuffix(filename, ".mid") {
		contentType = "audio/midi"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, data)
}

// zipBanks packs a bank dump pair into one zip download.
func zipBanks(stem string, banks [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for i, bank := range banks {
		f, err := w.Create(bankFileName(stem, i, true))
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(bank); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
