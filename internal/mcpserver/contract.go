package mcpserver

const noteFormatURI = "tasknote://note-format"

// NoteFormat tells LLM consumers how task notes are written.
const NoteFormat = `# Task Note Format

Notes are free Markdown attached to one task. A task may carry any number of
notes; they are shown oldest first.

## Rules

1. Content must not be empty or whitespace only.
2. Use plain Markdown: headings, lists, ` + "`- [ ]`" + ` checklists, code fences.
3. Images are uploaded with the ` + "`attach_image`" + ` tool, which returns a
   ready-made reference such as ` + "`![whiteboard](/uploads/1f0c....png)`" + `.
   Paste it into the note content unchanged.
4. Only raster images are accepted (png, jpg, gif, webp, bmp).
5. Search matches task titles and note content case-insensitively; keep the
   words you will search for in the note text.

## Example

` + "```" + `markdown
## Standup

- [x] review the design doc
- [ ] send the roadmap

![whiteboard](/uploads/2b1d5c7e-8f0a-4c4b-9b1e-0f3a8d6e2c11.jpg)
` + "```" + `
`
