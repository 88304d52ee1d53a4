package content

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		wantTitle string
		wantBody  string
		wantTags  []string
	}{
		{
			name:      "title body and tags",
			raw:       "My Trip\nGreat day out\n#travel #fun",
			wantTitle: "My Trip",
			wantBody:  "Great day out\n#travel #fun",
			wantTags:  []string{"#travel", "#fun"},
		},
		{
			name:      "empty input yields default title",
			raw:       "",
			wantTitle: DefaultTitle,
			wantBody:  "",
			wantTags:  []string{},
		},
		{
			name:      "blank lines before title are skipped",
			raw:       "\n  \n秋日穿搭分享\n\n第一段\n\n第二段",
			wantTitle: "秋日穿搭分享",
			wantBody:  "\n第一段\n\n第二段",
			wantTags:  []string{},
		},
		{
			name:      "blank lines inside body are preserved verbatim",
			raw:       "标题\n段落一\n\n段落二",
			wantTitle: "标题",
			wantBody:  "段落一\n\n段落二",
			wantTags:  []string{},
		},
		{
			name:      "tag in title line is extracted too",
			raw:       "#打卡 周末好去处\n正文\n#打卡 #周末",
			wantTitle: "#打卡 周末好去处",
			wantBody:  "正文\n#打卡 #周末",
			wantTags:  []string{"#打卡", "#打卡", "#周末"},
		},
		{
			name:      "duplicates kept in order of appearance",
			raw:       "t\n#a body #b more #a",
			wantTitle: "t",
			wantBody:  "#a body #b more #a",
			wantTags:  []string{"#a", "#b", "#a"},
		},
		{
			name:      "double hash does not glue tags together",
			raw:       "t\n##x #y#z",
			wantTitle: "t",
			wantBody:  "##x #y#z",
			wantTags:  []string{"#x", "#y", "#z"},
		},
		{
			name:      "whitespace only input",
			raw:       "   \n\t\n",
			wantTitle: DefaultTitle,
			wantBody:  "",
			wantTags:  []string{},
		},
		{
			name:      "single line is title with empty body",
			raw:       "只有标题",
			wantTitle: "只有标题",
			wantBody:  "",
			wantTags:  []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.raw)
			if got.Title != tc.wantTitle {
				t.Errorf("title: got %q, want %q", got.Title, tc.wantTitle)
			}
			if got.Body != tc.wantBody {
				t.Errorf("body: got %q, want %q", got.Body, tc.wantBody)
			}
			if !reflect.DeepEqual(got.Tags, tc.wantTags) {
				t.Errorf("tags: got %v, want %v", got.Tags, tc.wantTags)
			}
		})
	}
}

func TestParseNeverCachesAcrossEdits(t *testing.T) {
	first := Parse("标题A\n正文")
	second := Parse("标题B\n正文")
	if first.Title == second.Title {
		t.Fatal("expected independent parses for edited content")
	}
}
