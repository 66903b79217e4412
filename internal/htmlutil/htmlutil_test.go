package htmlutil

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "  hello  ", expected: "hello"},
		{input: "a\n\t  b", expected: "a b"},
		{input: "zero\u200bwidth", expected: "zerowidth"},
		{input: "bell\x07char", expected: "bellchar"},
		{input: "支持 \u3000 PoE\u00a0交换机", expected: "支持 PoE 交换机"},
		{input: "", expected: ""},
	}
	for _, row := range table {
		require.Equal(t, row.expected, CleanText(row.input), "input %q", row.input)
	}
}

func TestSelectionHelpers(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<ul id="list">
			<li> first <b>item</b> </li>
			<li>   </li>
			<li>second</li>
		</ul>
		<h1>Title
		</h1>
	`))
	require.NoError(t, err)

	require.Equal(t, []string{"first item", "second"}, ItemTexts(doc.Find("#list li")))
	require.Equal(t, "Title", Text(doc.Find("h1")))
	require.Equal(t, "", Text(doc.Find("h2")))
	require.Equal(t, []string{}, ItemTexts(doc.Find("p")))
}

func TestResolveURL(t *testing.T) {
	base, err := url.Parse("https://www.example.com.cn/search.html")
	require.NoError(t, err)

	require.Equal(t, "https://www.example.com.cn/product_12.html", ResolveURL(base, "/product_12.html"))
	require.Equal(t, "https://www.example.com.cn/product_12.html", ResolveURL(base, "product_12.html"))
	require.Equal(t, "https://other.example.com/p", ResolveURL(base, "https://other.example.com/p"))
}
