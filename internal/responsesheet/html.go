package responsesheet

import (
	"regexp"
	"strconv"
	"strings"
)

const statusAlternatives = `Not Attempted and Marked For Review|Answered and Marked For Review|Marked For Review|Not Answered|Answered`

var (
	htmlApplicationNo = regexp.MustCompile(`<td>Application No</td>\s*<td>(\d+)</td>`)
	htmlCandidateName = regexp.MustCompile(`<td>Candidate Name</td>\s*<td>([^<]+)</td>`)
	htmlRollNo        = regexp.MustCompile(`<td>Roll No\.</td>\s*<td>([^<]+)</td>`)
	htmlTestDate      = regexp.MustCompile(`<td>Test Date</td>\s*<td>([^<]+)</td>`)
	htmlTestTime      = regexp.MustCompile(`<td>Test Time</td>\s*<td>([^<]+)</td>`)
	htmlSubject       = regexp.MustCompile(`<td>Subject</td>\s*<td>([^<]+)</td>`)

	htmlSection    = regexp.MustCompile(`<span class="bold">([^<]+)</span></div>`)
	htmlPanelStart = regexp.MustCompile(`<div class="question-pnl"`)

	htmlQuestionID   = regexp.MustCompile(`<td align="right">Question ID :</td>\s*<td class="bold">(\d+)</td>`)
	htmlStatus       = regexp.MustCompile(`<td align="right">Status :</td>\s*<td class="bold">(` + statusAlternatives + `)</td>`)
	htmlChosenOption = regexp.MustCompile(`<td align="right">Chosen Option :</td>\s*<td class="bold">(\d+)</td>`)
	htmlOptionID     = regexp.MustCompile(`<td align="right">Option (\d+) ID :</td>\s*<td class="bold">(\d+)</td>`)
	htmlImage        = regexp.MustCompile(`<img[^>]*\ssrc="([^"]+)"`)
)

// firstGroup returns the first capture group of re in s, trimmed.
func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func htmlCandidate(content string) (Candidate, error) {
	var c Candidate
	var missing []string
	var ok bool

	if c.ApplicationNo, ok = firstGroup(htmlApplicationNo, content); !ok {
		missing = append(missing, "Application No")
	}
	if c.CandidateName, ok = firstGroup(htmlCandidateName, content); !ok {
		missing = append(missing, "Candidate Name")
	}
	if c.RollNo, ok = firstGroup(htmlRollNo, content); !ok {
		missing = append(missing, "Roll No.")
	}
	if len(missing) > 0 {
		return c, missingFields(missing)
	}

	c.TestDate, _ = firstGroup(htmlTestDate, content)
	c.TestTime, _ = firstGroup(htmlTestTime, content)
	c.Subject, _ = firstGroup(htmlSubject, content)
	return c, nil
}

// splitPanels cuts content into question-panel blocks, each running from one
// panel opening tag to the next.
func splitPanels(content string) []string {
	locs := htmlPanelStart.FindAllStringIndex(content, -1)
	panels := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		panels = append(panels, content[loc[0]:end])
	}
	return panels
}

// optionTable maps 1-based option numbers to option ids.
func optionTable(block string) map[int]string {
	table := make(map[int]string)
	for _, m := range htmlOptionID.FindAllStringSubmatch(block, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		table[n] = m[2]
	}
	return table
}

// resolveOption turns a chosen option number into its option id, falling back
// to the raw number when the id table has no such slot.
func resolveOption(number string, table map[int]string) (string, bool) {
	n, err := strconv.Atoi(number)
	if err == nil {
		if id, ok := table[n]; ok {
			return id, true
		}
	}
	return number, false
}

func parseHTML(content string) (*Sheet, []string, error) {
	cand, err := htmlCandidate(content)
	if err != nil {
		return nil, nil, err
	}

	var sections []string
	for _, m := range htmlSection.FindAllStringSubmatch(content, -1) {
		sections = append(sections, strings.TrimSpace(m[1]))
	}

	subject := defaultSubject(sections, cand.Subject)
	var unresolved []string
	var responses []Response

	for _, panel := range splitPanels(content) {
		qid, okID := firstGroup(htmlQuestionID, panel)
		rawStatus, okStatus := firstGroup(htmlStatus, panel)
		if !okID || !okStatus {
			continue
		}

		status := ParseStatus(rawStatus)
		resp := Response{
			QuestionID: qid,
			Status:     status,
			Subject:    subject,
		}
		if img, ok := firstGroup(htmlImage, panel); ok {
			resp.ImageURL = img
		}
		if chosen, ok := firstGroup(htmlChosenOption, panel); ok && status.Attempted() {
			id, resolved := resolveOption(chosen, optionTable(panel))
			if !resolved {
				unresolved = append(unresolved, qid)
			}
			resp.ChosenOptionID = id
		}
		responses = append(responses, resp)
	}

	sheet := &Sheet{
		Candidate: cand,
		Responses: responses,
		Sections:  sections,
	}
	sheet.Attribution = distributeBySection(sheet.Responses, sections)
	return sheet, unresolved, nil
}

func defaultSubject(sections []string, sheetSubject string) string {
	switch {
	case len(sections) > 0:
		return sections[0]
	case sheetSubject != "":
		return sheetSubject
	default:
		return unknownSubject
	}
}

// distributeBySection assigns subjects positionally when more than one
// section label was found: each section gets ceil(n/sections) consecutive
// questions. This assumes equally sized sections.
func distributeBySection(responses []Response, sections []string) Attribution {
	switch len(sections) {
	case 0:
		return AttributionNone
	case 1:
		return AttributionSection
	}

	perSection := (len(responses) + len(sections) - 1) / len(sections)
	if perSection == 0 {
		return AttributionPositional
	}
	for i := range responses {
		if idx := i / perSection; idx < len(sections) {
			responses[i].Subject = sections[idx]
		}
	}
	return AttributionPositional
}
