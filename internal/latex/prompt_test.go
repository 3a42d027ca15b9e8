package latex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"aitexgen/internal/models"
)

func TestBuildGeneratePrompt(t *testing.T) {
	req := models.NewGenerateRequest("John Doe\nSoftware engineer, 5 years", "resume", models.Options{})

	prompt := BuildGeneratePrompt(req)

	assert.Contains(t, prompt.System, "LaTeX")
	assert.Contains(t, prompt.User, "Document type: resume")
	assert.Contains(t, prompt.User, "John Doe")
	assert.NotContains(t, prompt.User, "Formatting:")
}

func TestBuildGeneratePromptDefaultsDocumentType(t *testing.T) {
	prompt := BuildGeneratePrompt(models.NewGenerateRequest("text", "  ", models.Options{}))
	assert.Contains(t, prompt.User, "Document type: document")
}

func TestBuildGeneratePromptOptions(t *testing.T) {
	req := models.NewGenerateRequest("data", "report", models.Options{SplitTables: true, MathMode: true})

	prompt := BuildGeneratePrompt(req)

	assert.Contains(t, prompt.User, "split tables")
	assert.Contains(t, prompt.User, "math environments")
}

func TestBuildModifyPrompt(t *testing.T) {
	doc := "\\documentclass{article}\\begin{document}Hi\\end{document}"

	change := BuildModifyPrompt(models.NewModifyRequest(doc, "make the title bold", false, models.Options{}))
	assert.Contains(t, change.User, "Apply the changes")
	assert.Contains(t, change.User, "make the title bold")
	assert.Contains(t, change.User, doc)

	omit := BuildModifyPrompt(models.NewModifyRequest(doc, "the second paragraph", true, models.Options{}))
	assert.Contains(t, omit.User, "Remove the content")
	assert.False(t, strings.Contains(omit.User, "Apply the changes"))
}
