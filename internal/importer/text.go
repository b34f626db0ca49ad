package importer

import (
	"bufio"
	"io"
	"strings"
)

// TextImporter handles plain text files. Blank-line separated blocks become
// paragraphs; the first block becomes the title when it is a single short line.
type TextImporter struct{}

const maxTextTitle = 100

func (p *TextImporter) Import(r io.Reader, filename string) (*Draft, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	title := baseName(filename)
	if len(paragraphs) > 1 && !strings.Contains(paragraphs[0], "\n") && len(paragraphs[0]) <= maxTextTitle {
		title = paragraphs[0]
		paragraphs = paragraphs[1:]
	}

	return newDraft(title, strings.Join(paragraphs, "\n\n"), nil), nil
}
