package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"

	projectUC "samanvay/internal/usecase/project"
)

var orderTmpl = template.Must(template.New("order").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"date": func(t time.Time) string { return t.Format("02 Jan 2006") },
}).Parse(`ASSIGNMENT ORDER
PM-AJAY / SAMANVAY

Project:    {{.Project.Name}} ({{.Project.ProjectID}})
State/UT:   {{.Project.State}}
Component:  {{.Project.Component}}
Budget:     {{.Project.Budget}}
Period:     {{date .Project.StartDate}} to {{date .Project.EndDate}}
Issued by:  {{.IssuedBy}} on {{date .IssuedAt}}
{{range .Assignments}}
Assignment {{inc .Index}}
  Agency:          {{.AgencyID}}
  Allocated funds: {{.AllocatedFunds}}
  Milestones:
{{- range .Checklist}}
    {{inc .Index}}. {{.Text}}
{{- end}}
{{end}}
Total allocated: {{.Project.AllocatedFunds}} of {{.Project.Budget}}
`))

var reOrderName = regexp.MustCompile(`^assignment-order-([a-f0-9]{32})-v[0-9]+\.txt$`)

func OrderFilename(projectID string, version int64) string {
	return fmt.Sprintf("assignment-order-%s-v%d.txt", projectID, version)
}

// ProjectOf returns the project an order file belongs to. Names that were
// not produced by OrderFilename are rejected.
func ProjectOf(name string) (string, bool) {
	m := reOrderName.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FileGenerator renders assignment orders as text files under Dir and
// returns links under BaseURL + "/documents/".
type FileGenerator struct {
	Dir     string
	BaseURL string
}

func NewFileGenerator(dir, baseURL string) *FileGenerator {
	return &FileGenerator{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (g *FileGenerator) AssignmentOrder(ctx context.Context, o projectUC.AssignmentOrder) (*projectUC.DocumentRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := orderTmpl.Execute(&buf, o); err != nil {
		return nil, fmt.Errorf("render assignment order: %w", err)
	}
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("documents dir: %w", err)
	}

	name := OrderFilename(o.Project.ProjectID, o.Project.Version)
	// write then rename so a reader never sees a partial file
	tmp, err := os.CreateTemp(g.Dir, ".order-*")
	if err != nil {
		return nil, err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(g.Dir, name)); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}
	return &projectUC.DocumentRef{
		Filename: name,
		URL:      g.BaseURL + "/documents/" + name,
	}, nil
}
