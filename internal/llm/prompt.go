package llm

import (
	"fmt"
	"strings"

	"github.com/faktgate/faktgate/internal/model"
)

const extractionSystem = "You identify checkable factual claims in video transcripts. You respond with JSON only, no commentary."

const verificationSystem = "You are a rigorous fact-checker. You verify one claim at a time against reliable sources and respond with JSON only, no commentary."

// buildExtractionPrompt asks the model to pull checkable claims out
// of one transcript chunk. The schema mirrors what parseClaims reads
// back; lang selects the instruction language so the model answers in
// the transcript's language.
func buildExtractionPrompt(chunk model.Chunk, lang string) string {
	var b strings.Builder

	if lang == "de" {
		b.WriteString("Extrahiere überprüfbare Tatsachenbehauptungen aus diesem Transkript-Abschnitt.\n\n")
		b.WriteString("Regeln:\n")
		b.WriteString("- Nur konkrete, überprüfbare Behauptungen (Zahlen, Daten, Ereignisse, Kausalaussagen).\n")
		b.WriteString("- Meinungen und Wertungen als type \"opinion\" markieren, nicht weglassen.\n")
		b.WriteString("- Kausalbehauptungen (\"X wegen Y\", \"als Reaktion auf\") als type \"causal\" markieren.\n")
		b.WriteString(fmt.Sprintf("- Höchstens %d Suchanfragen pro Behauptung.\n", model.MaxSearchQueries))
		b.WriteString("- checkability und importance sind ganze Zahlen von 1 bis 5.\n\n")
	} else {
		b.WriteString("Extract checkable factual claims from this transcript segment.\n\n")
		b.WriteString("Rules:\n")
		b.WriteString("- Only concrete, verifiable claims (numbers, dates, events, causal statements).\n")
		b.WriteString("- Mark opinions and value judgments as type \"opinion\", do not drop them.\n")
		b.WriteString("- Mark causal claims (\"X because of Y\", \"in reaction to\") as type \"causal\".\n")
		b.WriteString(fmt.Sprintf("- At most %d search queries per claim.\n", model.MaxSearchQueries))
		b.WriteString("- checkability and importance are integers from 1 to 5.\n\n")
	}

	b.WriteString("Respond with JSON in exactly this shape:\n")
	b.WriteString(`{"claims": [{"text": "...", "type": "factual|causal|opinion|procedural", "searchQueries": ["..."], "anchors": ["named entities"], "checkability": 1, "importance": 1}]}`)
	b.WriteString("\n\nTranscript segment")
	if chunk.VideoTime != "" {
		b.WriteString(" (at ")
		b.WriteString(chunk.VideoTime)
		b.WriteString(")")
	}
	b.WriteString(":\n---\n")
	b.WriteString(chunk.FullText)
	b.WriteString("\n---\n")

	return b.String()
}

// buildVerificationPrompt asks the model for a verdict on one claim.
// The requested JSON shape matches the verdict parser's payload, so a
// well-behaved model produces directly structured output and the
// parse ladder's later rungs only catch misbehaving ones.
func buildVerificationPrompt(claim model.Claim, lang string) string {
	var b strings.Builder

	if lang == "de" {
		b.WriteString("Prüfe die folgende Behauptung gegen verlässliche Quellen.\n\n")
		b.WriteString("Behauptung: ")
	} else {
		b.WriteString("Verify the following claim against reliable sources.\n\n")
		b.WriteString("Claim: ")
	}
	b.WriteString(claim.Text)
	b.WriteString("\n\n")

	if lang == "de" {
		b.WriteString("Regeln:\n")
		b.WriteString("- Bevorzuge offizielle Quellen (Statistikämter, Parlamente, Ministerien) und Qualitätsmedien.\n")
		b.WriteString("- Zitiere nur Quellen, die die Behauptung tatsächlich stützen oder widerlegen.\n")
		b.WriteString("- confidence ist deine Sicherheit zwischen 0 und 1.\n")
	} else {
		b.WriteString("Rules:\n")
		b.WriteString("- Prefer official sources (statistics offices, parliaments, ministries) and quality media.\n")
		b.WriteString("- Cite only sources that actually support or contradict the claim.\n")
		b.WriteString("- confidence is your certainty between 0 and 1.\n")
	}

	if claim.IsCausal() {
		if lang == "de" {
			b.WriteString("- Dies ist eine KAUSALBEHAUPTUNG: prüfe die Zeitachse. Gib intentDate (wann die Entscheidung geplant wurde) und triggerDate (wann der angebliche Auslöser eintrat) an, wenn ermittelbar.\n")
		} else {
			b.WriteString("- This is a CAUSAL claim: check the timeline. Include intentDate (when the decision was planned) and triggerDate (when the alleged trigger occurred) if determinable.\n")
		}
	}

	b.WriteString("\nRespond with JSON in exactly this shape:\n")
	b.WriteString(`{"verdict": "true|mostly_true|partially_true|mostly_false|false|deceptive|unverifiable|opinion|misleading", "confidence": 0.0, "explanation": "...", "sources": [{"url": "...", "date": "YYYY-MM-DD", "sentiment": "supporting|contradicting", "quote": "..."}]`)
	if claim.IsCausal() {
		b.WriteString(`, "intentDate": "YYYY-MM-DD", "triggerDate": "YYYY-MM-DD"`)
	}
	b.WriteString("}\n")

	return b.String()
}
