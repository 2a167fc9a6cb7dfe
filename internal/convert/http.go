package convert

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/convertey/convertey-api/internal/logging"
)

// bodySlack covers the JSON envelope and the other fields around fileData.
const bodySlack = 64 << 10

// Converter is implemented by *Service.
type Converter interface {
	Convert(ctx context.Context, req Request) (*Result, error)
}

// HandlerOptions restricts what a conversion endpoint accepts.
type HandlerOptions struct {
	// MaxBodyBytes caps the raw request body. Zero leaves it uncapped.
	MaxBodyBytes int64
	Families     []Family
}

type convertRequest struct {
	FileData string `json:"fileData"`
	FileType string `json:"fileType"`
	Format   string `json:"format"`
	FileName string `json:"fileName"`
}

type convertResponse struct {
	ConvertedData string `json:"convertedData"`
	FileName      string `json:"fileName"`
}

// MaxBodyBytesFor returns the body cap matching a decoded size limit: the
// base64 length of maxFileSize plus room for the JSON envelope.
func MaxBodyBytesFor(maxFileSize int64) int64 {
	return ((maxFileSize+2)/3)*4 + bodySlack
}

// FileHandler returns the handler for POST /api/convert/file.
func FileHandler(svc Converter, opts HandlerOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.MaxBodyBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, opts.MaxBodyBytes)
		}

		var body convertRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondWithError(c, validationError(CodeLimitExceeded,
					fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit)))
				return
			}
			respondWithError(c, validationError(CodeInvalidInput, "Request body must be JSON"))
			return
		}

		encoded, dataURLType := splitDataURL(body.FileData)
		if strings.TrimSpace(encoded) == "" {
			respondWithError(c, validationError(CodeInvalidInput, "fileData is required"))
			return
		}
		if strings.TrimSpace(body.Format) == "" {
			respondWithError(c, validationError(CodeInvalidInput, "format is required"))
			return
		}
		data, err := decodeBase64(encoded)
		if err != nil {
			respondWithError(c, validationError(CodeInvalidInput, "fileData is not valid base64"))
			return
		}

		fileType := body.FileType
		if strings.TrimSpace(fileType) == "" {
			fileType = dataURLType
		}
		result, err := svc.Convert(c.Request.Context(), Request{
			Data:         data,
			MimeType:     fileType,
			TargetFormat: body.Format,
			FileName:     body.FileName,
			Families:     opts.Families,
		})
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, convertResponse{
			ConvertedData: base64.StdEncoding.EncodeToString(result.Data),
			FileName:      result.FileName,
		})
	}
}

// FormatsHandler returns the handler for GET /api/formats.
func FormatsHandler(table *FormatTable) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"families": table.Summary()})
	}
}

// splitDataURL strips a "data:<mime>;base64," prefix and returns the payload
// and the MIME type it declared.
func splitDataURL(value string) (string, string) {
	if !strings.HasPrefix(value, "data:") {
		return value, ""
	}
	header, payload, ok := strings.Cut(value, ",")
	if !ok {
		return value, ""
	}
	mimeType := strings.TrimPrefix(header, "data:")
	mimeType = strings.TrimSuffix(mimeType, ";base64")
	return payload, mimeType
}

func decodeBase64(value string) ([]byte, error) {
	value = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, value)
	data, err := base64.StdEncoding.DecodeString(value)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(value, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

func respondWithError(c *gin.Context, err error) {
	logger := logging.FromContext(c.Request.Context())

	if errors.Is(err, context.Canceled) {
		logger.Info("conversion_canceled")
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "Request canceled"})
		return
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = newError(KindOf(err), CodeConversionFailed, "Conversion failed", err)
	}

	if KindOf(err) == KindValidation {
		logger.Info("conversion_rejected", "code", apiErr.Code, "message", apiErr.Message)
		c.JSON(http.StatusBadRequest, gin.H{"error": apiErr.Message})
		return
	}

	logger.Error("conversion_failed",
		"code", apiErr.Code,
		"message", apiErr.Message,
		"error", apiErr.Details(),
		"stack", fmt.Sprintf("%+v", apiErr.Err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   apiErr.Message,
		"details": apiErr.Details(),
	})
}
