package syllabus

import (
	"fmt"
	"regexp"
	"strings"
)

// Lesson is one ordered syllabus entry. Title is never empty; Body may
// be. Lists are built once per run and only enumerated afterwards.
type Lesson struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

var headerRe = regexp.MustCompile(`(?i)^(week\s*\d+)\s*[:\-]?\s*(.*)`)

// Segment partitions raw syllabus text into at most max lessons.
// Primary strategy: "Week N" header lines start a lesson, following
// lines up to the next header become its body (any trailer on the
// header line is prepended). If no header appears anywhere, the text
// is whitespace-tokenized and split into max equal chunks, the last
// one absorbing the remainder.
func Segment(text string, max int) []Lesson {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(ln); s != "" {
			lines = append(lines, s)
		}
	}

	var lessons []Lesson
	for i := 0; i < len(lines); {
		m := headerRe.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}
		var parts []string
		if rem := strings.TrimSpace(m[2]); rem != "" {
			parts = append(parts, rem)
		}
		j := i + 1
		for j < len(lines) && headerRe.FindStringSubmatch(lines[j]) == nil {
			parts = append(parts, lines[j])
			j++
		}
		lessons = append(lessons, Lesson{Title: m[1], Body: strings.Join(parts, " ")})
		i = j
	}

	if len(lessons) == 0 {
		lessons = chunkWords(text, max)
	}
	if len(lessons) > max {
		lessons = lessons[:max]
	}
	return lessons
}

// chunkWords is the structural-marker fallback: max contiguous chunks
// of total/max words each (minimum 1), final chunk running to the end
// of the word sequence.
func chunkWords(text string, max int) []Lesson {
	words := strings.Fields(text)
	total := len(words)
	if total == 0 {
		return nil
	}
	chunk := total / max
	if chunk < 1 {
		chunk = 1
	}
	// Always max records; a short text leaves trailing bodies empty.
	var lessons []Lesson
	for k := 0; k < max; k++ {
		start := k * chunk
		end := start + chunk
		if k == max-1 || end > total {
			end = total
		}
		if start > total {
			start = total
		}
		if end < start {
			end = start
		}
		lessons = append(lessons, Lesson{
			Title: fmt.Sprintf("Week %d", k+1),
			Body:  strings.Join(words[start:end], " "),
		})
	}
	return lessons
}
