package responsesheet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type option struct {
	number int
	id     string
}

type panel struct {
	questionID string
	status     string
	chosen     string
	options    []option
	image      string
}

func buildPanel(p panel) string {
	var b strings.Builder
	b.WriteString(`<div class="question-pnl" id="` + p.questionID + `"><table class="questionPnlTbl">`)
	if p.image != "" {
		b.WriteString(`<tr><td><img name="q" src="` + p.image + `" /></td></tr>`)
	}
	b.WriteString(`</table><table class="menu-tbl">`)
	b.WriteString(`<tr><td align="right">Question Type :</td> <td class="bold">MCQ</td></tr>`)
	b.WriteString(`<tr><td align="right">Question ID :</td> <td class="bold">` + p.questionID + `</td></tr>`)
	for _, o := range p.options {
		b.WriteString(fmt.Sprintf(`<tr><td align="right">Option %d ID :</td> <td class="bold">%s</td></tr>`, o.number, o.id))
	}
	b.WriteString(`<tr><td align="right">Status :</td> <td class="bold">` + p.status + `</td></tr>`)
	if p.chosen != "" {
		b.WriteString(`<tr><td align="right">Chosen Option :</td> <td class="bold">` + p.chosen + `</td></tr>`)
	}
	b.WriteString(`</table></div>`)
	return b.String()
}

func buildSheet(header string, sections map[int]string, panels []panel) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"main-info-pnl\"><table>")
	b.WriteString(header)
	b.WriteString("</table></div><div class=\"grp-cntnr\">")
	for i, p := range panels {
		if name, ok := sections[i]; ok {
			b.WriteString(`<div class="section-lbl"><span class="bold">` + name + `</span></div>`)
		}
		b.WriteString(buildPanel(p))
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

const fullHeader = `<tr><td>Application No</td> <td>240310012345</td></tr>
<tr><td>Candidate Name</td> <td> Asha Verma </td></tr>
<tr><td>Roll No.</td> <td>KA01000123</td></tr>
<tr><td>Test Date</td> <td>30/05/2025</td></tr>
<tr><td>Test Time</td> <td>2:00 PM - 5:00 PM</td></tr>
<tr><td>Subject</td> <td>Chemistry</td></tr>`

func TestParseHTML_PositionalSections(t *testing.T) {
	panels := []panel{
		{questionID: "101", status: "Answered", chosen: "2", options: []option{{1, "1001"}, {2, "1002"}}, image: "/per/g28/pub/101.png"},
		{questionID: "102", status: "Not Answered", options: []option{{1, "2001"}}},
		{questionID: "201", status: "Answered", chosen: "3", options: []option{{1, "3001"}, {2, "3002"}}},
		{questionID: "202", status: "Marked For Review", chosen: "1", options: []option{{1, "4001"}}},
	}
	content := buildSheet(fullHeader, map[int]string{0: "Physics", 2: "Chemistry"}, panels)

	sheet, err := ParseContent(content)
	if err != nil {
		t.Fatalf("ParseContent: %v", err)
	}

	if sheet.ApplicationNo != "240310012345" || sheet.CandidateName != "Asha Verma" || sheet.RollNo != "KA01000123" {
		t.Errorf("Unexpected candidate: %+v", sheet.Candidate)
	}
	if sheet.TestDate != "30/05/2025" || sheet.TestTime != "2:00 PM - 5:00 PM" || sheet.Subject != "Chemistry" {
		t.Errorf("Unexpected optional fields: %+v", sheet.Candidate)
	}
	if sheet.Attribution != AttributionPositional {
		t.Errorf("Expected positional attribution, got %s", sheet.Attribution)
	}

	tests := []struct {
		questionID string
		chosen     string
		status     Status
		subject    string
		image      string
	}{
		{"101", "1002", StatusAnswered, "Physics", "/per/g28/pub/101.png"},
		{"102", "", StatusNotAnswered, "Physics", ""},
		{"201", "3", StatusAnswered, "Chemistry", ""},
		{"202", "4001", StatusMarkedForReview, "Chemistry", ""},
	}
	if len(sheet.Responses) != len(tests) {
		t.Fatalf("Expected %d responses, got %d", len(tests), len(sheet.Responses))
	}
	for i, tt := range tests {
		t.Run(tt.questionID, func(t *testing.T) {
			got := sheet.Responses[i]
			if got.QuestionID != tt.questionID {
				t.Errorf("Expected question %s, got %s", tt.questionID, got.QuestionID)
			}
			if got.ChosenOptionID != tt.chosen {
				t.Errorf("Expected chosen %q, got %q", tt.chosen, got.ChosenOptionID)
			}
			if got.Status != tt.status {
				t.Errorf("Expected status %q, got %q", tt.status, got.Status)
			}
			if got.Subject != tt.subject {
				t.Errorf("Expected subject %q, got %q", tt.subject, got.Subject)
			}
			if got.ImageURL != tt.image {
				t.Errorf("Expected image %q, got %q", tt.image, got.ImageURL)
			}
		})
	}
}

func TestParseHTML_UnevenSections(t *testing.T) {
	panels := []panel{
		{questionID: "1", status: "Answered", chosen: "1", options: []option{{1, "11"}}},
		{questionID: "2", status: "Answered", chosen: "1", options: []option{{1, "21"}}},
		{questionID: "3", status: "Answered", chosen: "1", options: []option{{1, "31"}}},
	}
	content := buildSheet(fullHeader, map[int]string{0: "Physics", 1: "Chemistry"}, panels)

	sheet, err := ParseContent(content)
	if err != nil {
		t.Fatalf("ParseContent: %v", err)
	}

	// ceil(3/2) = 2 questions per section.
	want := []string{"Physics", "Physics", "Chemistry"}
	for i, r := range sheet.Responses {
		if r.Subject != want[i] {
			t.Errorf("Question %s: expected subject %s, got %s", r.QuestionID, want[i], r.Subject)
		}
	}
}

func TestParseHTML_SingleAndNoSection(t *testing.T) {
	panels := []panel{
		{questionID: "1", status: "Not Attempted and Marked For Review", options: []option{{1, "11"}}},
		{questionID: "2", status: "Answered", chosen: "1", options: []option{{1, "21"}}},
	}

	t.Run("Single section", func(t *testing.T) {
		sheet, err := ParseContent(buildSheet(fullHeader, map[int]string{0: "Biology"}, panels))
		if err != nil {
			t.Fatalf("ParseContent: %v", err)
		}
		if sheet.Attribution != AttributionSection {
			t.Errorf("Expected section attribution, got %s", sheet.Attribution)
		}
		for _, r := range sheet.Responses {
			if r.Subject != "Biology" {
				t.Errorf("Expected Biology, got %s", r.Subject)
			}
		}
		if sheet.Responses[0].Status != StatusNotAttemptedMarkedForReview {
			t.Errorf("Expected distinct review status, got %s", sheet.Responses[0].Status)
		}
	})

	t.Run("No section uses sheet subject", func(t *testing.T) {
		sheet, err := ParseContent(buildSheet(fullHeader, nil, panels))
		if err != nil {
			t.Fatalf("ParseContent: %v", err)
		}
		if sheet.Attribution != AttributionNone {
			t.Errorf("Expected no attribution, got %s", sheet.Attribution)
		}
		if sheet.Responses[1].Subject != "Chemistry" {
			t.Errorf("Expected sheet subject Chemistry, got %s", sheet.Responses[1].Subject)
		}
	})
}

func TestParseHTML_MissingRequiredFields(t *testing.T) {
	header := `<tr><td>Application No</td> <td>240310012345</td></tr>
<tr><td>Candidate Name</td> <td>Asha Verma</td></tr>`
	_, err := ParseContent(buildSheet(header, nil, nil))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
	if !strings.Contains(err.Error(), "Roll No.") {
		t.Errorf("Expected missing field in message, got %q", err.Error())
	}
}

func TestParseHTML_NoQuestions(t *testing.T) {
	sheet, err := ParseContent(buildSheet(fullHeader, nil, nil))
	if err != nil {
		t.Fatalf("Expected no error for a sheet without questions, got %v", err)
	}
	if len(sheet.Responses) != 0 {
		t.Errorf("Expected 0 responses, got %d", len(sheet.Responses))
	}
}

const textSheet = `Application No 240310012345
Candidate Name Asha Verma
Roll No. KA01000123
Test Date 30/05/2025
Test Time 2:00 PM - 5:00 PM
Subject Chemistry
Section : Physics
Q.1 A body moves with uniform velocity.
Question ID : 101
Option 1 ID : 1001
Option 2 ID : 1002
Status : Answered
Chosen Option : 2
Q.2 Units of force.
Question ID : 102
Status : Not Answered
Chosen Option : --
Section : Chemistry
Q.1 Valency of carbon.
Question ID : 201
Status : Answered
Chosen Option : 4
Q.2 Noble gases.
Question ID : 202
Status : Marked For Review
Chosen Option : 1
`

func TestParseText(t *testing.T) {
	sheet, err := ParseContent(textSheet)
	if err != nil {
		t.Fatalf("ParseContent: %v", err)
	}

	if sheet.CandidateName != "Asha Verma" || sheet.RollNo != "KA01000123" || sheet.Subject != "Chemistry" {
		t.Errorf("Unexpected candidate: %+v", sheet.Candidate)
	}
	if sheet.Attribution != AttributionOffset {
		t.Errorf("Expected offset attribution, got %s", sheet.Attribution)
	}

	tests := []struct {
		questionID string
		chosen     string
		status     Status
		subject    string
	}{
		{"101", "1002", StatusAnswered, "Physics"},
		{"102", "", StatusNotAnswered, "Physics"},
		{"201", "4", StatusAnswered, "Chemistry"},
		{"202", "1", StatusMarkedForReview, "Chemistry"},
	}
	if len(sheet.Responses) != len(tests) {
		t.Fatalf("Expected %d responses, got %d", len(tests), len(sheet.Responses))
	}
	for i, tt := range tests {
		got := sheet.Responses[i]
		if got.QuestionID != tt.questionID || got.ChosenOptionID != tt.chosen || got.Status != tt.status || got.Subject != tt.subject {
			t.Errorf("Response %d: expected %+v, got %+v", i, tt, got)
		}
	}
}

func TestParseText_SkippedQuestionMarker(t *testing.T) {
	header := "Application No 240310012345\nCandidate Name Asha Verma\nRoll No. KA01000123\n"
	tests := []struct {
		name      string
		body      string
		questions []string
		skipped   int
	}{
		{
			name: "Marker without question id",
			body: "Q.1 Units of force.\nStatus : Answered\nChosen Option : 2\n" +
				"Q.2 Valency of carbon.\nQuestion ID : 222\nStatus : Not Answered\nChosen Option : --\n",
			questions: []string{"222"},
			skipped:   1,
		},
		{
			name: "Marker mentioned in question text",
			body: "Q.1 Compare with Q.3 below.\nQuestion ID : 111\nStatus : Answered\nChosen Option : 1\n" +
				"Q.2 Noble gases.\nQuestion ID : 222\nStatus : Not Answered\n",
			questions: []string{"111", "222"},
			skipped:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet, err := ParseContent(header + tt.body)
			if err != nil {
				t.Fatalf("ParseContent: %v", err)
			}
			if len(sheet.Responses) != len(tt.questions) {
				t.Fatalf("Expected %d responses, got %+v", len(tt.questions), sheet.Responses)
			}
			for i, id := range tt.questions {
				if sheet.Responses[i].QuestionID != id {
					t.Errorf("Response %d: expected question %s, got %s", i, id, sheet.Responses[i].QuestionID)
				}
			}
			if sheet.Skipped != tt.skipped {
				t.Errorf("Expected %d skipped, got %d", tt.skipped, sheet.Skipped)
			}
		})
	}
}

func TestParseText_SubjectFallback(t *testing.T) {
	header := "Application No 240310012345\nCandidate Name Asha Verma\nRoll No. KA01000123\n"
	body := "Q.1 Units of force.\nQuestion ID : 101\nOption 1 ID : 1001\nOption 2 ID : 1002\nStatus : Answered\nChosen Option : 2\n"
	tests := []struct {
		name    string
		content string
		subject string
	}{
		{"Sheet subject without sections", header + "Subject Physics\n" + body, "Physics"},
		{"No subject anywhere", header + body, unknownSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet, err := ParseContent(tt.content)
			if err != nil {
				t.Fatalf("ParseContent: %v", err)
			}
			if len(sheet.Responses) != 1 {
				t.Fatalf("Expected 1 response, got %d", len(sheet.Responses))
			}
			got := sheet.Responses[0]
			if got.Subject != tt.subject {
				t.Errorf("Expected subject %q, got %q", tt.subject, got.Subject)
			}
			if got.ChosenOptionID != "1002" {
				t.Errorf("Expected option 2 resolved to 1002, got %q", got.ChosenOptionID)
			}
			if sheet.Attribution != AttributionNone {
				t.Errorf("Expected no attribution, got %s", sheet.Attribution)
			}
		})
	}
}

func TestParseText_MissingRequiredFields(t *testing.T) {
	_, err := ParseContent("Candidate Name Asha\nQ.1\nQuestion ID : 1\nStatus : Answered\n")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
	if !strings.Contains(err.Error(), "Application No") || !strings.Contains(err.Error(), "Roll No.") {
		t.Errorf("Expected both missing fields in message, got %q", err.Error())
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected Status
	}{
		{"Answered", StatusAnswered},
		{" not  answered ", StatusNotAnswered},
		{"Marked For Review", StatusMarkedForReview},
		{"Not Attempted and Marked For Review", StatusNotAttemptedMarkedForReview},
		{"", StatusNotAnswered},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseStatus(tt.raw); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParse_URL(t *testing.T) {
	content := buildSheet(fullHeader, nil, []panel{
		{questionID: "1", status: "Answered", chosen: "1", options: []option{{1, "11"}}},
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		fmt.Fprint(w, content)
	}))
	defer srv.Close()

	p := New(NewHTTPFetcher(0, 0))

	t.Run("Fetched and parsed", func(t *testing.T) {
		sheet, err := p.Parse(context.Background(), srv.URL+"/sheet.html")
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if len(sheet.Responses) != 1 || sheet.Responses[0].ChosenOptionID != "11" {
			t.Errorf("Unexpected responses: %+v", sheet.Responses)
		}
	})

	t.Run("Non-200 is a fetch failure", func(t *testing.T) {
		_, err := p.Parse(context.Background(), srv.URL+"/missing")
		if !errors.Is(err, ErrFetch) {
			t.Errorf("Expected ErrFetch, got %v", err)
		}
	})

	t.Run("Body over the size cap is a fetch failure", func(t *testing.T) {
		small := New(NewHTTPFetcher(0, int64(len(content)-1)))
		_, err := small.Parse(context.Background(), srv.URL+"/sheet.html")
		if !errors.Is(err, ErrFetch) {
			t.Fatalf("Expected ErrFetch, got %v", err)
		}
		if !strings.Contains(err.Error(), "exceeds") {
			t.Errorf("Expected size message, got %q", err.Error())
		}
	})

	t.Run("Body exactly at the cap is accepted", func(t *testing.T) {
		exact := New(NewHTTPFetcher(0, int64(len(content))))
		if _, err := exact.Parse(context.Background(), srv.URL+"/sheet.html"); err != nil {
			t.Errorf("Parse: %v", err)
		}
	})
}
