package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/scorecheck/backend/internal/report"
	"github.com/scorecheck/backend/internal/responsesheet"
)

func renderCandidate(w io.Writer, c responsesheet.Candidate) {
	fmt.Fprintf(w, "Candidate: %s (%s)\n", c.CandidateName, c.ApplicationNo)
	if c.RollNo != "" {
		fmt.Fprintf(w, "Roll No:   %s\n", c.RollNo)
	}
	if c.TestDate != "" {
		fmt.Fprintf(w, "Test:      %s %s\n", c.TestDate, c.TestTime)
	}
	fmt.Fprintln(w)
}

// renderSubjects prints one row per scored subject, alphabetically, with the
// overall totals in the footer.
func renderSubjects(w io.Writer, rep report.OverallReport) {
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{
				PerColumn: []tw.Align{tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight},
			},
		},
	}))
	table.Header("Subject", "Correct", "Incorrect", "Unattempted", "Score", "Accuracy")

	subjects := make([]string, 0, len(rep.SubjectWiseScores))
	for s := range rep.SubjectWiseScores {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	for _, s := range subjects {
		ss := rep.SubjectWiseScores[s]
		_ = table.Append(s,
			fmt.Sprint(ss.Correct),
			fmt.Sprint(ss.Incorrect),
			fmt.Sprint(ss.Unattempted),
			fmt.Sprintf("%g / %g", ss.Score, ss.MaxScore),
			fmt.Sprintf("%.2f%%", ss.Accuracy),
		)
	}
	table.Footer("Total",
		fmt.Sprint(rep.CorrectAnswers),
		fmt.Sprint(rep.IncorrectAnswers),
		fmt.Sprint(rep.UnansweredQuestions),
		fmt.Sprintf("%g / %g", rep.TotalScore, rep.MaxTotalScore),
		fmt.Sprintf("%.2f%%", rep.Accuracy),
	)
	_ = table.Render()
	fmt.Fprintf(w, "Completion: %.2f%%  Percentage: %.2f%%\n", rep.CompletionRate, rep.Percentage)
}

func renderQuestions(w io.Writer, questions []report.Question) {
	table := tablewriter.NewTable(w)
	table.Header("Question", "Subject", "Answer", "Correct", "Status", "Marks")
	for _, q := range questions {
		_ = table.Append(q.QuestionID, q.Subject, q.StudentAnswer, fmt.Sprint(q.CorrectAnswer), q.Status, fmt.Sprintf("%g", q.MarksAwarded))
	}
	_ = table.Render()
}
