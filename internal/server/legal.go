package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"letbabytalk/internal/model"
)

// getLegalDocument serves a localized terms/privacy document. The requested
// locale is matched against the available translations; unknown locales fall
// back to the best match, with English as the final default.
func (s *Server) getLegalDocument(c *gin.Context) {
	docType := c.Param("type")
	locale := c.Param("locale")

	var docs []model.LegalDocument
	if err := s.db.Where("type = ?", docType).Find(&docs).Error; err != nil || len(docs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, pickLocale(docs, locale))
}

// pickLocale selects the document whose locale best matches the request.
func pickLocale(docs []model.LegalDocument, locale string) *model.LegalDocument {
	tags := make([]language.Tag, 0, len(docs))
	indexByTag := make(map[int]*model.LegalDocument, len(docs))
	fallback := &docs[0]

	for i := range docs {
		tag, err := language.Parse(docs[i].Locale)
		if err != nil {
			continue
		}
		indexByTag[len(tags)] = &docs[i]
		tags = append(tags, tag)
		if docs[i].Locale == "en" {
			fallback = &docs[i]
		}
	}
	if len(tags) == 0 {
		return fallback
	}

	requested, err := language.Parse(locale)
	if err != nil {
		return fallback
	}

	matcher := language.NewMatcher(tags)
	_, index, confidence := matcher.Match(requested)
	if confidence == language.No {
		return fallback
	}
	return indexByTag[index]
}
