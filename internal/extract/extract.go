package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoTable means the page had no table mentioning a tax-id label.
// It is a soft failure: the login still succeeded.
var ErrNoTable = errors.New("no registry table found")

// Field is a logical value pulled from the registry table.
type Field string

const (
	FullName         Field = "full_name"
	TaxID            Field = "tax_id"
	SocialSecurityID Field = "social_security_id"
	TaxOffice        Field = "tax_office"
)

// Alias lists the accepted label spellings for one field, most preferred first.
type Alias struct {
	Field  Field
	Labels []string
}

// DefaultAliases covers the label variants the registry page is known to render.
var DefaultAliases = []Alias{
	{Field: FullName, Labels: []string{"Επώνυμο / Επώνυμο(β) / Όνομα", "Ονοματεπώνυμο", "Επωνυμία"}},
	{Field: TaxID, Labels: []string{"ΑΦΜ", "Α.Φ.Μ."}},
	{Field: SocialSecurityID, Labels: []string{"Α.Μ.Κ.Α.", "ΑΜΚΑ"}},
	{Field: TaxOffice, Labels: []string{"ΔΟΥ", "Δ.Ο.Υ."}},
}

// DefaultMarkers identify the registry table: the tax-id label in either spelling.
var DefaultMarkers = []string{"ΑΦΜ", "Α.Φ.Μ."}

// Row is one label/value pair of a table.
type Row struct {
	Label string
	Value string
}

// Table is the label/value view of a single <table>.
type Table []Row

// Lookup returns the value of the first row whose label equals label.
func (t Table) Lookup(label string) (string, bool) {
	want := normalizeLabel(label)
	for _, r := range t {
		if r.Label == want {
			return r.Value, true
		}
	}
	return "", false
}

// Fields holds the extracted values keyed by field.
type Fields map[Field]string

// Extractor finds the registry table in a page and resolves field aliases.
type Extractor struct {
	Markers []string
	Aliases []Alias
}

// New returns an Extractor using the default markers and aliases.
func New() *Extractor {
	return &Extractor{Markers: DefaultMarkers, Aliases: DefaultAliases}
}

// Extract parses html and returns the fields found in the first table whose
// own cells mention a marker. Fields without a matching label are left out.
func (e *Extractor) Extract(html string) (Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", ErrNoTable, err)
	}

	table, ok := e.findTable(doc)
	if !ok {
		return nil, ErrNoTable
	}

	fields := make(Fields)
	for _, alias := range e.Aliases {
		for _, label := range alias.Labels {
			if v, found := table.Lookup(label); found {
				fields[alias.Field] = v
				break
			}
		}
	}
	return fields, nil
}

// Tables returns the label/value view of every table in the document.
func Tables(doc *goquery.Document) []Table {
	var out []Table
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		out = append(out, parseTable(tbl))
	})
	return out
}

func (e *Extractor) findTable(doc *goquery.Document) (Table, bool) {
	for _, t := range Tables(doc) {
		if t.mentions(e.Markers) {
			return t, true
		}
	}
	return nil, false
}

func (t Table) mentions(markers []string) bool {
	for _, r := range t {
		for _, m := range markers {
			if strings.Contains(r.Label, m) || strings.Contains(r.Value, m) {
				return true
			}
		}
	}
	return false
}

// parseTable reads the rows that belong to tbl itself, not to nested tables.
// Each row contributes its first two cells; single-cell rows get an empty value.
func parseTable(tbl *goquery.Selection) Table {
	var t Table
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if !tr.Closest("table").IsSelection(tbl) {
			return
		}
		cells := tr.ChildrenFiltered("td, th")
		if cells.Length() == 0 {
			return
		}
		row := Row{Label: normalizeLabel(cellText(cells.Eq(0)))}
		if cells.Length() > 1 {
			row.Value = cellText(cells.Eq(1))
		}
		t = append(t, row)
	})
	return t
}

// cellText is the cell's own text; nested tables are left to their own parse.
func cellText(s *goquery.Selection) string {
	c := s.Clone()
	c.Find("table").Remove()
	return strings.Join(strings.Fields(c.Text()), " ")
}

func normalizeLabel(label string) string {
	label = strings.Join(strings.Fields(label), " ")
	return strings.TrimSpace(strings.TrimSuffix(label, ":"))
}
