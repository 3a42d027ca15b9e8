package latex

import (
	"fmt"
	"strings"

	"aitexgen/internal/models"
)

const generateSystem = `You are an expert LaTeX typesetter. You turn plain text into complete, compilable LaTeX documents.

Rules:
- Always produce a complete document: \documentclass, the \usepackage lines the content needs, \begin{document} and \end{document}.
- Pick a document class that fits the requested document type.
- Escape LaTeX special characters (&, %, $, #, _) appearing in the source text.
- Keep the author's content; do not invent text that is not in the source.
- Reply with only the LaTeX source inside a fenced code block tagged latex. No commentary before or after.`

const modifySystem = `You are an expert LaTeX editor. You apply requested changes to an existing LaTeX document.

Rules:
- Return the full revised document, not a diff or a fragment.
- Change only what the instructions require; preserve the rest byte for byte where possible.
- Keep the preamble valid: never drop \documentclass or packages the body still uses.
- Reply with only the LaTeX source inside a fenced code block tagged latex. No commentary before or after.`

// BuildGeneratePrompt renders a generation request into the system and user
// halves of one model invocation.
func BuildGeneratePrompt(req models.GenerateRequest) models.Prompt {
	var b strings.Builder

	documentType := strings.TrimSpace(req.DocumentType)
	if documentType == "" {
		documentType = "document"
	}
	fmt.Fprintf(&b, "Document type: %s\n", documentType)

	if req.Options.SplitTables {
		b.WriteString("Formatting: split tables that would overflow the page width into several narrower tables.\n")
	}
	if req.Options.MathMode {
		b.WriteString("Formatting: set mathematical expressions in proper math environments instead of plain text.\n")
	}

	b.WriteString("\nSource text:\n")
	b.WriteString(req.Content)

	return models.Prompt{System: generateSystem, User: b.String()}
}

// BuildModifyPrompt renders a modification request. Omit flips the
// instruction from "apply these changes" to "remove this content".
func BuildModifyPrompt(req models.ModifyRequest) models.Prompt {
	var b strings.Builder

	if req.Omit {
		b.WriteString("Remove the content described below from the document.\n")
	} else {
		b.WriteString("Apply the changes described below to the document.\n")
	}
	b.WriteString("\nInstructions:\n")
	b.WriteString(req.Notes)
	b.WriteString("\n\nCurrent document:\n")
	b.WriteString(req.Latex)

	return models.Prompt{System: modifySystem, User: b.String()}
}
