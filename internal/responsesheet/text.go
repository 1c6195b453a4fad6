package responsesheet

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	textApplicationNo = regexp.MustCompile(`Application No\s*(\d+)`)
	textCandidateName = regexp.MustCompile(`Candidate Name\s*([^\n\r]+)`)
	textRollNo        = regexp.MustCompile(`Roll No\.\s*([^\n\r]+)`)
	textTestDate      = regexp.MustCompile(`Test Date\s*([^\n\r]+)`)
	textTestTime      = regexp.MustCompile(`Test Time\s*([^\n\r]+)`)
	textSubject       = regexp.MustCompile(`Subject\s*([^\n\r]+)`)

	textSection  = regexp.MustCompile(`Section\s*:\s*([^\n\r]+)`)
	textQuestion = regexp.MustCompile(`Q\.(\d+)[\s\S]*?Question ID\s*:\s*(\d+)[\s\S]*?Status\s*:\s*(` + statusAlternatives + `)`)
	textChosen   = regexp.MustCompile(`Chosen Option\s*:\s*(\d+)`)
	textOptionID = regexp.MustCompile(`Option\s*(\d+)\s*ID\s*:\s*(\d+)`)

	// Only line-leading markers count, so "see Q.3" in question text does not.
	textQuestionMarker = regexp.MustCompile(`(?m)^[ \t]*(Q)\.\d+`)
)

type textSectionMark struct {
	name string
	pos  int
}

func textCandidate(content string) (Candidate, error) {
	var c Candidate
	var missing []string
	var ok bool

	if c.ApplicationNo, ok = firstGroup(textApplicationNo, content); !ok {
		missing = append(missing, "Application No")
	}
	if c.CandidateName, ok = firstGroup(textCandidateName, content); !ok {
		missing = append(missing, "Candidate Name")
	}
	if c.RollNo, ok = firstGroup(textRollNo, content); !ok {
		missing = append(missing, "Roll No.")
	}
	if len(missing) > 0 {
		return c, missingFields(missing)
	}

	c.TestDate, _ = firstGroup(textTestDate, content)
	c.TestTime, _ = firstGroup(textTestTime, content)
	c.Subject, _ = firstGroup(textSubject, content)
	return c, nil
}

// textOptionTable reads "Option N ID : <id>" rows from a question block.
func textOptionTable(block string) map[int]string {
	table := make(map[int]string)
	for _, m := range textOptionID.FindAllStringSubmatch(block, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		table[n] = m[2]
	}
	return table
}

// skippedMarkers counts line-leading "Q.<n>" markers that no question match
// starts at. A block without a Question ID is folded into the next match.
func skippedMarkers(content string, matches [][]int) int {
	starts := make(map[int]bool, len(matches))
	for _, loc := range matches {
		starts[loc[0]] = true
	}
	skipped := 0
	for _, m := range textQuestionMarker.FindAllStringSubmatchIndex(content, -1) {
		if !starts[m[2]] {
			skipped++
		}
	}
	return skipped
}

func parseText(content string) (*Sheet, []string, error) {
	cand, err := textCandidate(content)
	if err != nil {
		return nil, nil, err
	}

	var marks []textSectionMark
	var sections []string
	for _, loc := range textSection.FindAllStringSubmatchIndex(content, -1) {
		name := strings.TrimSpace(content[loc[2]:loc[3]])
		marks = append(marks, textSectionMark{name: name, pos: loc[0]})
		sections = append(sections, name)
	}

	matches := textQuestion.FindAllStringSubmatchIndex(content, -1)
	responses := make([]Response, 0, len(matches))
	var unresolved []string

	for i, loc := range matches {
		// The block runs to the next question so trailing rows such as
		// "Chosen Option" stay with their own question.
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		block := content[loc[0]:end]

		qid := content[loc[4]:loc[5]]
		status := ParseStatus(content[loc[6]:loc[7]])

		subject := unknownSubject
		for j := len(marks) - 1; j >= 0; j-- {
			if loc[0] > marks[j].pos {
				subject = marks[j].name
				break
			}
		}
		if len(marks) == 0 && cand.Subject != "" {
			subject = cand.Subject
		}

		resp := Response{QuestionID: qid, Status: status, Subject: subject}
		if chosen, ok := firstGroup(textChosen, block); ok && status.Attempted() {
			id, resolved := resolveOption(chosen, textOptionTable(block))
			if !resolved {
				unresolved = append(unresolved, qid)
			}
			resp.ChosenOptionID = id
		}
		responses = append(responses, resp)
	}

	attribution := AttributionNone
	switch {
	case len(marks) > 1:
		attribution = AttributionOffset
	case len(marks) == 1:
		attribution = AttributionSection
	}

	return &Sheet{
		Candidate:   cand,
		Responses:   responses,
		Sections:    sections,
		Attribution: attribution,
		Skipped:     skippedMarkers(content, matches),
	}, unresolved, nil
}
