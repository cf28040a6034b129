package opencover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/covscan/domain"
)

const sampleReport = `<?xml version="1.0" encoding="utf-8"?>
<CoverageSession>
  <Modules>
    <Module>
      <FullName>C:\build\App.dll</FullName>
      <Classes>
        <Class>
          <Summary sequenceCoverage="30" branchCoverage="10" />
          <FullName>App.Services.OrderService</FullName>
          <Methods>
            <Method>
              <Summary sequenceCoverage="99" />
              <Name>System.Void App.Services.OrderService::Place()</Name>
            </Method>
          </Methods>
        </Class>
        <Class>
          <Summary sequenceCoverage="87.25" />
          <FullName>App.Models.Order</FullName>
        </Class>
      </Classes>
    </Module>
  </Modules>
</CoverageSession>
`

func collect(t *testing.T, input string) ([]domain.ClassCoverageRecord, Result, error) {
	t.Helper()
	var records []domain.ClassCoverageRecord
	res, err := NewParser(nil).Parse(context.Background(), strings.NewReader(input), func(r domain.ClassCoverageRecord) error {
		records = append(records, r)
		return nil
	})
	return records, res, err
}

func TestParser_ExtractsClassRecords(t *testing.T) {
	records, res, err := collect(t, sampleReport)
	require.NoError(t, err)

	assert.Equal(t, []domain.ClassCoverageRecord{
		{ClassName: "App.Services.OrderService", CoveragePercent: 30},
		{ClassName: "App.Models.Order", CoveragePercent: 87.25},
	}, records)
	assert.Equal(t, 2, res.Records)
	assert.Empty(t, res.Malformed)
}

func TestParser_LowercaseCoberturaStyle(t *testing.T) {
	input := `<coverage><class><summary sequenceCoverage="0"/><FullName>Lib.Empty</FullName></class></coverage>`

	records, _, err := collect(t, input)
	require.NoError(t, err)
	assert.Equal(t, []domain.ClassCoverageRecord{{ClassName: "Lib.Empty", CoveragePercent: 0}}, records)
}

func TestParser_MalformedCoverageContinues(t *testing.T) {
	input := "<root>\n" +
		"<class><summary sequenceCoverage=\"n/a\"/><FullName>Bad</FullName></class>\n" +
		"<class><summary sequenceCoverage=\"15\"/><FullName>Good</FullName></class>\n" +
		"</root>"

	records, res, err := collect(t, input)
	require.NoError(t, err)
	assert.Equal(t, []domain.ClassCoverageRecord{{ClassName: "Good", CoveragePercent: 15}}, records)

	require.Len(t, res.Malformed, 1)
	assert.Equal(t, "n/a", res.Malformed[0].Value)
	assert.Equal(t, 2, res.Malformed[0].Line)
}

func TestParser_MalformedXMLKeepsEarlierRecords(t *testing.T) {
	input := `<root><class><summary sequenceCoverage="5"/><FullName>First</FullName></class><class><oops></root>`

	records, res, err := collect(t, input)
	require.Error(t, err)
	assert.Equal(t, []domain.ClassCoverageRecord{{ClassName: "First", CoveragePercent: 5}}, records)
	assert.Equal(t, 1, res.Records)
}

func TestParser_HandlerErrorStopsParse(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	_, err := NewParser(nil).Parse(context.Background(), strings.NewReader(sampleReport), func(domain.ClassCoverageRecord) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestParser_NilHandlerCountsRecords(t *testing.T) {
	res, err := NewParser(nil).Parse(context.Background(), strings.NewReader(sampleReport), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Records)
}

func TestParser_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser(nil).Parse(ctx, strings.NewReader(sampleReport), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParser_Latin1Encoding(t *testing.T) {
	input := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
		"<root><class><summary sequenceCoverage=\"1\"/><FullName>Caf\xe9</FullName></class></root>"

	records, _, err := collect(t, input)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Café", records[0].ClassName)
}

func TestParser_UnknownEncoding(t *testing.T) {
	input := `<?xml version="1.0" encoding="x-no-such-charset"?><root/>`

	_, _, err := collect(t, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x-no-such-charset")
}

func TestParser_ParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opencover.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleReport), 0644))

	res, err := NewParser(nil).ParseFile(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Records)

	_, err = NewParser(nil).ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.xml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParser_SameInputSameRecords(t *testing.T) {
	first, _, err := collect(t, sampleReport)
	require.NoError(t, err)
	second, _, err := collect(t, sampleReport)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
