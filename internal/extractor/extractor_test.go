package extractor

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/lotteryworker/internal/lottery"
	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

var (
	pick3 = lottery.GameDefinition{
		ID: "pick-3", NumbersCount: 3, DrawTimes: []lottery.DrawTime{lottery.Midday, lottery.Evening},
		HasExtraBall: true,
	}
	fantasy5 = lottery.GameDefinition{
		ID: "fantasy-5", NumbersCount: 5, DrawTimes: []lottery.DrawTime{lottery.Midday, lottery.Evening},
		DistinctBalls: true,
	}
	lotto = lottery.GameDefinition{
		ID: "florida-lotto", NumbersCount: 6, DrawTimes: []lottery.DrawTime{lottery.Evening}, DistinctBalls: true,
	}
	cash4life = lottery.GameDefinition{
		ID: "cash4life", NumbersCount: 5, DrawTimes: []lottery.DrawTime{lottery.Evening},
		HasExtraBall: true, DistinctBalls: true,
	}
	powerball = lottery.GameDefinition{
		ID: "powerball", NumbersCount: 5, DrawTimes: []lottery.DrawTime{lottery.Evening},
		HasExtraBall: true, DistinctBalls: true,
	}
	triplePlay = lottery.GameDefinition{
		ID: "jackpot-triple-play", NumbersCount: 6, DrawTimes: []lottery.DrawTime{lottery.Evening}, DistinctBalls: true,
	}
)

func textInput(s string) Input {
	return Input{Content: []byte(s), Format: lottery.FormatText, Source: "test"}
}

func TestNumberTokens(t *testing.T) {
	assert.Equal(t, []string{"05", "12"}, NumberTokens("Draw at 7:30, jackpot $2,000,000 | 05 12 2023"))
	assert.Equal(t, []string{"13", "21", "4"}, NumberTokens("13- 21- (4)"))
	assert.Empty(t, NumberTokens("10/25/2023 Powerball"))
}

func TestSelectionTextSeparatesNodes(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div><ul><li>7</li><li>14</li></ul><script>var x = 1;</script><span>Evening</span></div>`))
	require.NoError(t, err)
	assert.Equal(t, "7 14 Evening", SelectionText(doc.Find("div")))
}

func TestFindDate(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"Oct 25 2023 07 14", "2023-10-25", true},
		{"Sept. 3 results", "2021-09-03", true},
		{"Tuesday October 24, 2023", "2023-10-24", true},
		{"drawn 10/25/2023", "2023-10-25", true},
		{"Wed, Mar 6, 2024", "2024-03-06", true},
		{"2024-02-29 evening", "2024-02-29", true},
		{"Feb 30 2023", "", false},
		{"no dates here 12 14", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, _, ok := FindDate(tt.text, 2021)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.Format(lottery.DateLayout))
			}
		})
	}
}

func TestFindDateSpan(t *testing.T) {
	text := "Results Oct 25, 2023 07 14"
	_, span, ok := FindDate(text, 0)
	require.True(t, ok)
	assert.Equal(t, "Oct 25, 2023", text[span[0]:span[1]])
}

func TestParseShortDate(t *testing.T) {
	d, ok := ParseShortDate("02/05/26")
	require.True(t, ok)
	assert.Equal(t, "2026-02-05", d.Format(lottery.DateLayout))

	d, ok = ParseShortDate("2/5/2026")
	require.True(t, ok)
	assert.Equal(t, "2026-02-05", d.Format(lottery.DateLayout))

	_, ok = ParseShortDate("13/40/26")
	assert.False(t, ok)
}

func TestRenderings(t *testing.T) {
	r := Renderings(time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"Oct 25", "October 25", "10/25/2023", "Wednesday, October 25, 2023", "2023-10-25"}, r)
}

func TestFixedFormatCashBall(t *testing.T) {
	ex, err := NewFixedLayout("cash-ball")
	require.NoError(t, err)

	got, err := ex.Extract(textInput("CASH4LIFE\n02/05/26 13- 21- 22- 47- 48 CB 4\n"), cash4life)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-02-05", got[0].Date)
	assert.Equal(t, lottery.Evening, got[0].DrawTime)
	assert.Equal(t, []string{"13", "21", "22", "47", "48"}, got[0].Numbers)
	assert.Equal(t, "4", got[0].Extra)
	assert.Equal(t, "test", got[0].Source)
}

func TestFixedFormatFireballSessions(t *testing.T) {
	ex, err := NewFixedLayout("fireball")
	require.NoError(t, err)

	text := "02/05/26 E 9- 4- 3 FB 5\n02/05/26 M 1- 1- 2 FB 0\n"
	got, err := ex.Extract(textInput(text), pick3)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, lottery.Evening, got[0].DrawTime)
	assert.Equal(t, []string{"9", "4", "3"}, got[0].Numbers)
	assert.Equal(t, "5", got[0].Extra)

	assert.Equal(t, lottery.Midday, got[1].DrawTime)
	assert.Equal(t, []string{"1", "1", "2"}, got[1].Numbers)
	assert.Equal(t, "0", got[1].Extra)
}

func TestFixedFormatLottoSkipsDoublePlay(t *testing.T) {
	ex, err := NewFixedLayout("lotto")
	require.NoError(t, err)

	text := "02/07/26 3- 14- 22- 35- 41- 50 LOTTO\n02/07/26 1- 2- 3- 4- 5- 6 LOTTO DP\n"
	got, err := ex.Extract(textInput(text), lotto)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"3", "14", "22", "35", "41", "50"}, got[0].Numbers)
	assert.Equal(t, "2026-02-07", got[0].Date)
}

func TestFixedFormatSessionWords(t *testing.T) {
	ex, err := NewFixedLayout("session-words")
	require.NoError(t, err)

	text := "02/05/26 MIDDAY 3 11 18 25 33\n02/05/26 EVENING 1 7 9 20 36\n"
	got, err := ex.Extract(textInput(text), fantasy5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, lottery.Midday, got[0].DrawTime)
	assert.Equal(t, lottery.Evening, got[1].DrawTime)
	assert.Equal(t, []string{"1", "7", "9", "20", "36"}, got[1].Numbers)
}

func TestFixedFormatMiss(t *testing.T) {
	ex, err := NewFixedLayout("cash-ball")
	require.NoError(t, err)

	_, err = ex.Extract(textInput("nothing to see"), cash4life)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeExtraction))
}

func TestNewFixedFormatRejectsBadPatterns(t *testing.T) {
	_, err := NewFixedFormat("broken", `(?P<date>\d+`)
	assert.Error(t, err)

	_, err = NewFixedFormat("nodate", `(?P<numbers>\d+)`)
	assert.ErrorContains(t, err, "date")

	_, err = NewFixedFormat("nonumbers", `(?P<date>\d+/\d+/\d+)`)
	assert.ErrorContains(t, err, "numbers")

	_, err = NewFixedLayout("keno")
	assert.Error(t, err)
}

func TestAnchorProximity(t *testing.T) {
	ex := NewAnchorProximity(0)
	in := Input{
		Content: []byte(`<html><body><p>Jackpot Triple Play</p><p>Oct 25 2023 07 14 22 35 41 09</p></body></html>`),
		Format:  lottery.FormatHTML,
		Source:  "test",
		Target:  time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC),
	}

	got, err := ex.Extract(in, triplePlay)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2023-10-25", got[0].Date)
	assert.Equal(t, []string{"07", "14", "22", "35", "41", "09"}, got[0].Numbers)
	assert.Equal(t, lottery.Evening, got[0].DrawTime)
	assert.Empty(t, got[0].Extra)
}

func TestAnchorProximityRejectsLongerDay(t *testing.T) {
	ex := NewAnchorProximity(DefaultAnchorWindow)
	in := textInput("Oct 25 2023 1 2 3 4 5 6 then Oct 2 2023 10 11 12 13 14 15")
	in.Target = time.Date(2023, 10, 2, 0, 0, 0, 0, time.UTC)

	got, err := ex.Extract(in, triplePlay)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"10", "11", "12", "13", "14", "15"}, got[0].Numbers)
}

func TestAnchorProximityChecksPrintedYear(t *testing.T) {
	ex := NewAnchorProximity(DefaultAnchorWindow)
	in := textInput("Oct 25 2023 07 14 22 35 41 09")
	in.Target = time.Date(2022, 10, 25, 0, 0, 0, 0, time.UTC)

	_, err := ex.Extract(in, triplePlay)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeExtraction))

	// a later occurrence with the right year still anchors
	in = textInput("October 25, 2023 1 2 3 4 5 6 and October 25, 2022 07 14 22 35 41 09")
	in.Target = time.Date(2022, 10, 25, 0, 0, 0, 0, time.UTC)
	got, err := ex.Extract(in, triplePlay)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2022-10-25", got[0].Date)
	assert.Equal(t, []string{"07", "14", "22", "35", "41", "09"}, got[0].Numbers)
}

func TestAnchorProximityYearlessNeedsUniqueDay(t *testing.T) {
	ex := NewAnchorProximity(DefaultAnchorWindow)
	in := textInput("Oct 25: 07 14 22 35 41 09")
	in.Target = time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC)

	got, err := ex.Extract(in, triplePlay)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	in.RepeatedMonthDay = true
	_, err = ex.Extract(in, triplePlay)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeExtraction))
}

func TestAnchorProximityMiss(t *testing.T) {
	ex := NewAnchorProximity(DefaultAnchorWindow)
	in := textInput("Nov 1 2023 1 2 3 4 5 6")
	in.Target = time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC)

	_, err := ex.Extract(in, triplePlay)
	le, ok := pkgerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.ErrorTypeExtraction, le.Type)
	assert.Contains(t, le.Hints, "Oct 25")
	assert.Contains(t, le.Hints, "10/25/2023")

	// too few numbers within the window
	in = textInput("Oct 25 2023 1 2 3")
	in.Target = time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC)
	_, err = ex.Extract(in, triplePlay)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeExtraction))

	_, err = ex.Extract(textInput("Oct 25 2023 1 2 3 4 5 6"), triplePlay)
	assert.Error(t, err)
}

const resultsTable = `
<table>
  <tr><th>Date</th><th>Numbers</th></tr>
  <tr>
    <td><a href="/powerball/numbers/10-24-2023">Tuesday<br>October 24, 2023</a></td>
    <td><ul><li class="ball">7</li><li class="ball">14</li><li class="ball">21</li><li class="ball">33</li><li class="ball">45</li><li class="powerball">9</li></ul></td>
    <td>Power Play 2x</td>
  </tr>
  <tr><td>October 21, 2023</td><td>Results pending</td></tr>
</table>`

func TestTabularRowListItems(t *testing.T) {
	ex := NewTabularRow("")
	got, err := ex.Extract(Input{Content: []byte(resultsTable), Format: lottery.FormatHTML, Source: "test", YearHint: 2023}, powerball)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2023-10-24", got[0].Date)
	assert.Equal(t, []string{"7", "14", "21", "33", "45"}, got[0].Numbers)
	assert.Equal(t, "9", got[0].Extra)
	assert.Equal(t, lottery.Evening, got[0].DrawTime)
}

func TestTabularRowCellsAndSession(t *testing.T) {
	page := `<table>
	  <tr><td>Oct 23</td><td>Midday</td><td>3</td><td>11</td><td>18</td><td>25</td><td>33</td></tr>
	  <tr><td>Oct 23</td><td>Evening</td><td>1</td><td>7</td><td>9</td><td>20</td><td>36</td></tr>
	</table>`
	ex := NewTabularRow("tr")
	got, err := ex.Extract(Input{Content: []byte(page), Format: lottery.FormatHTML, Source: "test", YearHint: 2023}, fantasy5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2023-10-23", got[0].Date)
	assert.Equal(t, lottery.Midday, got[0].DrawTime)
	assert.Equal(t, []string{"3", "11", "18", "25", "33"}, got[0].Numbers)
	assert.Equal(t, lottery.Evening, got[1].DrawTime)
}

func TestTabularRowFreeText(t *testing.T) {
	page := `<div class="draw">2023-10-25 Results: 04 - 19 - 23 - 30 - 41</div>`
	ex := NewTabularRow("div.draw")
	got, err := ex.Extract(Input{Content: []byte(page), Format: lottery.FormatHTML, Source: "test"}, fantasy5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"04", "19", "23", "30", "41"}, got[0].Numbers)
}

func TestTabularRowMiss(t *testing.T) {
	ex := NewTabularRow("")
	_, err := ex.Extract(Input{Content: []byte(`<p>maintenance</p>`), Format: lottery.FormatHTML, Source: "test"}, powerball)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeExtraction))
}

func TestNew(t *testing.T) {
	ex, err := New(lottery.SourceConfig{Strategy: lottery.StrategyTabularRow})
	require.NoError(t, err)
	assert.Equal(t, "tabular-row", ex.GetName())

	ex, err = New(lottery.SourceConfig{Strategy: lottery.StrategyAnchorProximity})
	require.NoError(t, err)
	assert.Equal(t, "anchor-proximity", ex.GetName())

	ex, err = New(lottery.SourceConfig{Strategy: lottery.StrategyFixedFormat, Layout: "fireball"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-format:fireball", ex.GetName())

	ex, err = New(lottery.SourceConfig{Strategy: lottery.StrategyFixedFormat, Pattern: `(?P<date>\S+) (?P<numbers>[\d ]+)`})
	require.NoError(t, err)
	assert.Equal(t, "fixed-format:custom", ex.GetName())

	_, err = New(lottery.SourceConfig{Strategy: "guess"})
	assert.Error(t, err)
}

func TestValidateRegistry(t *testing.T) {
	assert.NoError(t, ValidateRegistry(lottery.DefaultRegistry()))
}
