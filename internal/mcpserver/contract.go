package mcpserver

import (
	"strings"

	"github.com/starford/dailylog/internal/diary"
)

// EntryFormat describes the daily log layout for the given settings so
// LLM consumers can read and reason about the document.
func EntryFormat(s diary.Settings) string {
	r := strings.NewReplacer(
		"{folder}", s.Folder,
		"{date_format}", s.DateFormat,
		"{created}", s.CreatedTitle,
		"{edited}", s.EditedTitle,
	)
	return r.Replace(entryFormat)
}

const entryFormat = `# Daily Log Entry Format

One Markdown file per day lives at ` + "`{folder}/<date>.md`" + `, where the date
is formatted with ` + "`{date_format}`" + `.

## Layout

` + "```" + `markdown
# <date> 日记
{created}
- [[note]] (09:15 created)

{edited}
- [[other]] (10:02 edited)
` + "```" + `

## Entry lines

- A note created today: ` + "`- [[name]] (HH:MM created)`" + `
- A note edited today but not created today: ` + "`- [[name]] (HH:MM edited)`" + `
- A note created and later edited today stays in the created section:
  ` + "`- [[name]] (HH:MM created) | (HH:MM edited)`" + `

` + "`name`" + ` is the file name without folder or extension. Times are local
24-hour clock. Each note appears at most once per day; a new edit updates
the edited time in place. Edits less than a minute after the previous
recorded time are not logged.
`
