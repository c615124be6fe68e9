package agent

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/agentgate/internal/doctags"
	"github.com/dgallion1/agentgate/internal/document"
	"github.com/dgallion1/agentgate/internal/ollama"
	"github.com/dgallion1/agentgate/internal/parser"
	"github.com/dgallion1/agentgate/internal/route"
)

// minUsefulChars is the shortest extraction worth formatting; anything
// at or under it is treated as a failed pass.
const minUsefulChars = 50

const (
	summaryInputLimit  = 1500
	analysisContentCap = 2000
	fullContentCap     = 3000
)

const unreadableAttachmentMessage = "I could not read the uploaded file. Please try uploading it again."

const extractionFailedMessage = "I could only extract technical headers from this document. The document might be:\n" +
	"- An image without readable text\n" +
	"- A corrupted file\n" +
	"- A file format not supported by the model\n\n" +
	"Please try uploading a different document or check if the file contains readable text."

// extractionPrompts is the ladder tried against the vision model. The
// model is trained to emit tag markup unprompted, so the empty prompt
// goes first and short nudges follow.
var extractionPrompts = []string{"", "Extract", "Document"}

// analysisKeywords in the user message switch the response into
// summary mode.
var analysisKeywords = []string{
	"analyze", "summarize", "summary", "overview",
	"what is in this", "explain this document",
}

// pdfBoilerplate lines are generator artifacts stripped from extracted
// content before formatting.
var pdfBoilerplate = []string{
	"Powered by TCPDF",
	"www.tcpdf.org",
	"TCPDF",
	"Generated by",
	"Document created",
}

// document extracts the attachment's content with the vision model and
// formats it for the user. Extraction failures degrade step by step:
// prompt ladder, then a plain-text rescue pass with the router model,
// then an explanatory message.
func (d *Dispatcher) document(ctx context.Context, req Request) Result {
	att := req.Attachment
	log := d.log.With("filename", att.Filename, "session", req.SessionID)

	data, err := os.ReadFile(att.Path)
	if err != nil {
		log.Error("attachment unreadable", "path", att.Path, "error", err)
		return Result{Response: unreadableAttachmentMessage, Route: route.RouteError}
	}
	log.Info("extracting document",
		"bytes", len(data),
		"native", parser.IsSupportedExtension(att.Filename))

	// Text-bearing formats are parsed natively first. Scanned or
	// image-only files fall through to the vision model.
	if nodes := d.parseNative(log, att.Filename, data); len(nodes) > 0 {
		content := document.RenderMarkdown(nodes)
		if utf8.RuneCountInString(content) > minUsefulChars {
			return Result{
				Response: d.formatDocument(ctx, log, content, req.Message, "Native Text Extraction"),
				Route:    route.RouteDocument,
			}
		}
	}
	imageB64 := base64.StdEncoding.EncodeToString(data)

	raw := d.extractTags(ctx, log, imageB64)
	if raw != "" {
		d.tags.Record(raw)
	}

	if len(raw) > minUsefulChars {
		var content, method string
		if strings.ContainsRune(raw, '<') && strings.ContainsRune(raw, '>') {
			content = document.RenderMarkdown(doctags.Parse(raw))
			method = "DocTags Parsing"
		} else {
			content = dedupeLines(raw)
			method = "Raw Text Processing"
		}
		return Result{
			Response: d.formatDocument(ctx, log, content, req.Message, method),
			Route:    route.RouteDocument,
		}
	}

	rescue, err := d.llm.Generate(ctx, ollama.GenerateRequest{
		Model:       d.cfg.RouterModel,
		Prompt:      rescuePrompt(req.Message),
		Images:      []string{imageB64},
		Temperature: rescueTemperature,
	})
	if err != nil {
		log.Warn("router rescue extraction failed", "error", err)
	}
	rescue = strings.TrimSpace(rescue)
	if len(rescue) > minUsefulChars {
		return Result{
			Response: d.formatDocument(ctx, log, dedupeLines(rescue), req.Message, "Router Model Fallback"),
			Route:    route.RouteDocument,
		}
	}
	return Result{Response: extractionFailedMessage, Route: route.RouteDocument}
}

// parseNative runs the file through the format parser for its
// extension. A nil return means no parser fits or parsing failed, and
// the vision model takes over.
func (d *Dispatcher) parseNative(log *slog.Logger, filename string, data []byte) []document.Node {
	p, err := parser.ForFile(filename)
	if err != nil {
		return nil
	}
	nodes, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		log.Warn("native parse failed, using vision model", "error", err)
		return nil
	}
	return nodes
}

// extractTags runs the prompt ladder against the vision model and keeps
// the longest answer. Individual failures are logged and skipped.
func (d *Dispatcher) extractTags(ctx context.Context, log *slog.Logger, imageB64 string) string {
	best := ""
	for i, prompt := range extractionPrompts {
		out, err := d.llm.Generate(ctx, ollama.GenerateRequest{
			Model:       d.cfg.VisionModel,
			Prompt:      prompt,
			Images:      []string{imageB64},
			Temperature: visionTemperature,
		})
		if err != nil {
			log.Warn("extraction attempt failed", "attempt", i+1, "error", err)
			continue
		}
		out = strings.TrimSpace(out)
		log.Debug("extraction attempt", "attempt", i+1, "chars", len(out))
		if len(out) > len(best) {
			best = out
		}
	}
	return best
}

// formatDocument assembles the user-facing document response: optional
// summary, clipped content, and a statistics footer.
func (d *Dispatcher) formatDocument(ctx context.Context, log *slog.Logger, content, userMessage, method string) string {
	content = stripBoilerplate(content)

	var b strings.Builder
	fmt.Fprintf(&b, "**Document Analysis Complete (%s)**\n\n", method)

	if wantsAnalysis(userMessage) {
		if summary := d.summarize(ctx, log, content); summary != "" {
			b.WriteString("**Document Summary:**\n\n")
			b.WriteString(summary)
			b.WriteString("\n\n")
		}
		writeContent(&b, content, analysisContentCap,
			"Ask me to 'summarize this document' to get a complete overview of all content.")
	} else {
		writeContent(&b, content, fullContentCap,
			"Ask me to 'analyze this document' to get a summary of all content.")
	}

	fmt.Fprintf(&b, "**Document Statistics:**\n")
	fmt.Fprintf(&b, "- Characters: %d\n", utf8.RuneCountInString(content))
	fmt.Fprintf(&b, "- Words: %d\n", len(strings.Fields(content)))
	fmt.Fprintf(&b, "- Processing Method: %s\n", method)
	return b.String()
}

// summarize condenses the opening of the extracted content with the
// router model. An empty string means the summary is unavailable and
// the caller should carry on without it.
func (d *Dispatcher) summarize(ctx context.Context, log *slog.Logger, content string) string {
	summary, err := d.llm.Generate(ctx, ollama.GenerateRequest{
		Model:       d.cfg.RouterModel,
		Prompt:      summaryPrompt(clipRunes(content, summaryInputLimit)),
		Temperature: summaryTemperature,
	})
	if err != nil {
		log.Warn("document summary failed", "error", err)
		return ""
	}
	return strings.TrimSpace(summary)
}

// writeContent appends the extracted content, clipping it at limit
// runes with a continuation marker and a follow-up tip.
func writeContent(b *strings.Builder, content string, limit int, tip string) {
	total := utf8.RuneCountInString(content)
	if total > limit {
		fmt.Fprintf(b, "**Extracted Content (showing first %d characters):**\n\n", limit)
		b.WriteString(clipRunes(content, limit))
		fmt.Fprintf(b, "\n\n*... and %d more characters*\n\n", total-limit)
		fmt.Fprintf(b, "**Tip:** %s\n\n", tip)
		return
	}
	b.WriteString("**Extracted Content:**\n\n")
	b.WriteString(content)
	b.WriteString("\n\n")
}

func wantsAnalysis(userMessage string) bool {
	msg := strings.ToLower(userMessage)
	for _, kw := range analysisKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// stripBoilerplate removes generator artifacts wherever they appear.
func stripBoilerplate(content string) string {
	for _, h := range pdfBoilerplate {
		content = strings.ReplaceAll(content, h, "")
	}
	return strings.TrimSpace(content)
}

// dedupeLines drops blank lines and repeated lines, keeping the first
// occurrence. Vision output for busy pages tends to loop.
func dedupeLines(text string) string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

// clipRunes returns at most n runes of s.
func clipRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
