package extract

import (
	"strings"
	"testing"
)

const sampleEnvelope = `<SEC-DOCUMENT>0000000000-26-000001.txt
<DOCUMENT>
<TYPE>EX-99.1
<SEQUENCE>2
<FILENAME>pressrelease.htm
<DESCRIPTION>PRESS RELEASE
<TEXT>
<html><body><p>Quarterly revenue was $10 million.</p></body></html>
</TEXT>
</DOCUMENT>
<DOCUMENT>
<TYPE>GRAPHIC
<SEQUENCE>3
<FILENAME>logo.jpg
<TEXT>
<p>Second block text.</p>
</TEXT>
</DOCUMENT>
</SEC-DOCUMENT>`

func TestParseEnvelopeDocuments(t *testing.T) {
	t.Parallel()

	docs := ParseEnvelopeDocuments(sampleEnvelope)
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	first := docs[0]
	if first.Type != "EX-99.1" {
		t.Fatalf("unexpected type: %q", first.Type)
	}
	if first.Sequence != "2" {
		t.Fatalf("unexpected sequence: %q", first.Sequence)
	}
	if first.Filename != "pressrelease.htm" {
		t.Fatalf("unexpected filename: %q", first.Filename)
	}
	if first.Description != "PRESS RELEASE" {
		t.Fatalf("unexpected description: %q", first.Description)
	}
	if !strings.Contains(first.Text, "Quarterly revenue was $10 million.") {
		t.Fatalf("body text missing: %q", first.Text)
	}
	if strings.Contains(first.Text, "<p>") {
		t.Fatalf("markup leaked into text: %q", first.Text)
	}

	if docs[1].Description != "" {
		t.Fatalf("absent header should be empty, got %q", docs[1].Description)
	}
}

func TestExtractEnvelopeText(t *testing.T) {
	t.Parallel()

	text := ExtractEnvelopeText(sampleEnvelope)
	if !strings.Contains(text, "Quarterly revenue was $10 million.") {
		t.Fatalf("first document text missing: %q", text)
	}
	if !strings.Contains(text, "Second block text.") {
		t.Fatalf("second document text missing: %q", text)
	}
}

func TestExtractEnvelopeTextPlainHTML(t *testing.T) {
	t.Parallel()

	// A bare HTML page has no envelope markers, so there is nothing to
	// extract.
	text := ExtractEnvelopeText("<html><body><p>not an envelope</p></body></html>")
	if text != "" {
		t.Fatalf("expected empty text for plain HTML, got %q", text)
	}
}
