package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryPage = `<html><body>
<a href="/logout">Αποσύνδεση</a>
<table id="menu"><tr><td>Αρχική</td><td>Στοιχεία Μητρώου</td></tr></table>
<table class="info">
  <tr><th>Επώνυμο / Επώνυμο(β) / Όνομα</th><td>ΠΑΠΑΔΟΠΟΥΛΟΣ ΓΕΩΡΓΙΟΣ</td></tr>
  <tr><th>ΑΦΜ</th><td> 123456789 </td></tr>
  <tr><th>Α.Μ.Κ.Α.</th><td>987654321</td></tr>
  <tr><th>ΔΟΥ:</th><td>Α' ΑΘΗΝΩΝ</td></tr>
</table>
</body></html>`

func TestExtract_RegistryTable(t *testing.T) {
	fields, err := New().Extract(registryPage)
	require.NoError(t, err)

	assert.Equal(t, "ΠΑΠΑΔΟΠΟΥΛΟΣ ΓΕΩΡΓΙΟΣ", fields[FullName])
	assert.Equal(t, "123456789", fields[TaxID])
	assert.Equal(t, "987654321", fields[SocialSecurityID])
	assert.Equal(t, "Α' ΑΘΗΝΩΝ", fields[TaxOffice])
}

func TestExtract_TwoRowTable(t *testing.T) {
	page := `<table><tr><td>ΑΦΜ</td><td>123456789</td></tr><tr><td>Α.Μ.Κ.Α.</td><td>987654321</td></tr></table>`

	fields, err := New().Extract(page)
	require.NoError(t, err)
	assert.Equal(t, "123456789", fields[TaxID])
	assert.Equal(t, "987654321", fields[SocialSecurityID])
	assert.NotContains(t, fields, FullName)
	assert.NotContains(t, fields, TaxOffice)
}

func TestExtract_AlternativeSpellings(t *testing.T) {
	page := `<table>
	<tr><td>Ονοματεπώνυμο</td><td>ΙΩΑΝΝΟΥ ΜΑΡΙΑ</td></tr>
	<tr><td>Α.Φ.Μ.</td><td>111222333</td></tr>
	<tr><td>ΑΜΚΑ</td><td>01017012345</td></tr>
	<tr><td>Δ.Ο.Υ.</td><td>ΚΑΛΑΜΑΡΙΑΣ</td></tr>
	</table>`

	fields, err := New().Extract(page)
	require.NoError(t, err)
	assert.Equal(t, Fields{
		FullName:         "ΙΩΑΝΝΟΥ ΜΑΡΙΑ",
		TaxID:            "111222333",
		SocialSecurityID: "01017012345",
		TaxOffice:        "ΚΑΛΑΜΑΡΙΑΣ",
	}, fields)
}

func TestExtract_FirstAliasWins(t *testing.T) {
	page := `<table>
	<tr><td>Α.Φ.Μ.</td><td>second</td></tr>
	<tr><td>ΑΦΜ</td><td>first</td></tr>
	</table>`

	fields, err := New().Extract(page)
	require.NoError(t, err)
	assert.Equal(t, "first", fields[TaxID])
}

func TestExtract_NoMarkerTable(t *testing.T) {
	page := `<a>Αποσύνδεση</a><table><tr><td>Όνομα</td><td>X</td></tr></table>`

	fields, err := New().Extract(page)
	assert.ErrorIs(t, err, ErrNoTable)
	assert.Empty(t, fields)

	_, err = New().Extract("no tables at all")
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestExtract_NestedLayoutTable(t *testing.T) {
	page := `<table id="layout"><tr><td>
		<table id="data">
			<tr><td>ΑΦΜ</td><td>123456789</td></tr>
		</table>
	</td></tr></table>`

	fields, err := New().Extract(page)
	require.NoError(t, err)
	assert.Equal(t, "123456789", fields[TaxID])
}

func TestTables(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(registryPage))
	require.NoError(t, err)

	tables := Tables(doc)
	require.Len(t, tables, 2)
	assert.Equal(t, Row{Label: "Αρχική", Value: "Στοιχεία Μητρώου"}, tables[0][0])

	v, ok := tables[1].Lookup("ΔΟΥ")
	assert.True(t, ok)
	assert.Equal(t, "Α' ΑΘΗΝΩΝ", v)

	_, ok = tables[1].Lookup("missing")
	assert.False(t, ok)
}
