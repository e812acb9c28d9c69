package manifest

import "testing"

func TestHasTestableContent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"whitespace", "  \n\t", false},
		{"empty manifest", Build(Document{}), false},
		{"remotes only", Build(Document{Remotes: []Remote{{Name: "aosp", Fetch: "https://github.com/aosp/"}}}), false},
		{"project", `<manifest><project path="a" name="b"/></manifest>`, true},
		{"removal", `<manifest><remove-project name="b"/></manifest>`, true},
		{"commented project only", `<manifest><!-- <project path="a" name="b"/> --></manifest>`, true},
		{"commented removal only", `<manifest><!-- <remove-project name="b" /> --></manifest>`, true},
		{"plain comment", `<manifest><!-- Projects --></manifest>`, false},
		{"comment mentioning projection", `<manifest><!-- <projection/> --></manifest>`, false},
		{"project-like element", `<manifest><projection name="b"/></manifest>`, false},
		{"malformed with project", `<manifest><project path="a" name="b">`, true},
		{"malformed without project", `<manifest><remote name="a" fetch="b"`, false},
		{"malformed commented project", `<manifest><!-- <project path="a"/> --><remote`, true},
		{"no declaration", `<project path="a" name="b" />`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasTestableContent(tt.text); got != tt.want {
				t.Errorf("HasTestableContent(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
