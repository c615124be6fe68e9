package agent

import (
	"fmt"
	"strings"

	"github.com/dgallion1/agentgate/internal/search"
	"github.com/dgallion1/agentgate/internal/store"
)

// chatPreamble frames every conversational prompt.
const chatPreamble = "You are a helpful AI assistant. You can help with general questions, chat, and can also process documents when uploaded.\n\n"

// capabilitiesOverview describes the system to the model, and doubles
// as the answer of last resort when inference is down.
const capabilitiesOverview = `**Multi-Agent System Capabilities**

I coordinate a small team of specialized agents:

**Router Agent**
- General conversation and chat
- Request routing and coordination
- Context-aware responses with session memory

**Document Agent**
- Document parsing and analysis
- Text extraction from images, PDFs, and DOCX files
- Table and structure detection

**Web Search Agent**
- Real-time web search
- Current information and news
- Research and fact-checking

**How to use:**
- General chat: just talk to me.
- Document processing: upload a file and ask me to "analyze this document" or "extract text".
- Web search: ask me to "search for" or "find information about" something.

**Supported file types:** images (JPG, PNG), PDFs, and DOCX documents.`

// chatPrompt folds the recent exchanges and the current message into a
// single conversational prompt.
func chatPrompt(history []store.Exchange, message string) string {
	var b strings.Builder
	b.WriteString(chatPreamble)
	writeHistory(&b, history)
	fmt.Fprintf(&b, "Current message: %s", message)
	return b.String()
}

// capabilitiesPrompt asks the model to answer a question about the
// system, grounded in the overview text.
func capabilitiesPrompt(history []store.Exchange, message string) string {
	var b strings.Builder
	b.WriteString("You are the router of a multi-agent assistant. Answer the user's question about what this system can do, grounded in the description below. Keep the answer short and concrete.\n\n")
	b.WriteString(capabilitiesOverview)
	b.WriteString("\n\n")
	writeHistory(&b, history)
	fmt.Fprintf(&b, "Current message: %s", message)
	return b.String()
}

// synthesisPrompt asks the model to answer the user's question from the
// collected search results.
func synthesisPrompt(query, userMessage string, results []search.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following web search results for %q, provide a comprehensive and helpful answer. Synthesize the information from multiple sources to give the user the best possible response.\n\nSearch Results:\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s\n   URL: %s\n   Description: %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	b.WriteString("\n\nPlease provide:\n")
	b.WriteString("1. A comprehensive answer to the user's question based on the search results\n")
	b.WriteString("2. Key information and facts\n")
	b.WriteString("3. Be informative and helpful\n")
	b.WriteString("4. If it's about current data (like stock prices), mention that the information is from real-time sources\n")
	b.WriteString("5. Keep the response concise but complete\n")
	fmt.Fprintf(&b, "\nUser's original question: %s", userMessage)
	return b.String()
}

// summaryPrompt asks for a 3-4 sentence summary of extracted content.
func summaryPrompt(content string) string {
	var b strings.Builder
	b.WriteString("Please provide a comprehensive summary of this document content in 3-4 sentences. Focus on the main points, key information, and important details:\n\n")
	b.WriteString(content)
	b.WriteString("\n\nProvide a clear, informative summary that captures the essence of this document.")
	return b.String()
}

// rescuePrompt asks a general vision-capable model to read a page the
// structured extractor could not.
func rescuePrompt(userMessage string) string {
	var b strings.Builder
	b.WriteString("Look at this image and extract all readable text. This appears to be a document. Extract any text you can see, including headers, body text, tables, or any information.\n\n")
	fmt.Fprintf(&b, "User message: %s\n\n", userMessage)
	b.WriteString("Please provide all the text content you can extract from this document.")
	return b.String()
}

func writeHistory(b *strings.Builder, history []store.Exchange) {
	if len(history) == 0 {
		return
	}
	b.WriteString("Previous conversation:\n")
	for _, ex := range history {
		fmt.Fprintf(b, "User: %s\nAssistant: %s\n\n", ex.User, ex.Assistant)
	}
}
