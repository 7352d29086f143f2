package core

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Row
	}{
		{
			name: "simple rows",
			text: "a,b,c\n1,2,3",
			want: []Row{{"a", "b", "c"}, {"1", "2", "3"}},
		},
		{
			name: "fields are trimmed",
			text: " a , b \n1,  2",
			want: []Row{{"a", "b"}, {"1", "2"}},
		},
		{
			name: "quoted comma",
			text: `name,note` + "\n" + `Ada,"x, y"`,
			want: []Row{{"name", "note"}, {"Ada", "x, y"}},
		},
		{
			name: "escaped quote",
			text: `"say ""hi""",b`,
			want: []Row{{`say "hi"`, "b"}},
		},
		{
			name: "quoted field spans lines",
			text: "\"line1\nline2\",ok",
			want: []Row{{"line1\nline2", "ok"}},
		},
		{
			name: "blank and comma-only lines dropped",
			text: "a,b\n\n , \n1,2\n",
			want: []Row{{"a", "b"}, {"1", "2"}},
		},
		{
			name: "heterogeneous widths kept",
			text: "a,b,c\n1\n1,2,3,4",
			want: []Row{{"a", "b", "c"}, {"1"}, {"1", "2", "3", "4"}},
		},
		{
			name: "unterminated quote closes at end of input",
			text: "a,\"open\nrest",
			want: []Row{{"a", "open\nrest"}},
		},
		{
			name: "row with some empty fields kept",
			text: "a,,c",
			want: []Row{{"a", "", "c"}},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tokenize(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenizeRecords_LineNumbers(t *testing.T) {
	text := "h1,h2\n\n\"multi\nline\",x\nlast,row"

	records := TokenizeRecords(text)

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, want := range []int{1, 3, 5} {
		if records[i].Line != want {
			t.Errorf("records[%d].Line = %d, want %d", i, records[i].Line, want)
		}
	}
	if want := (Row{"multi\nline", "x"}); !reflect.DeepEqual(records[1].Fields, want) {
		t.Errorf("records[1].Fields = %q, want %q", records[1].Fields, want)
	}
}

func TestTokenizeSerialize_RoundTrip(t *testing.T) {
	inputs := []string{
		"name,email\nAda,ada@x.com\nBob,bob@y.org",
		"a",
		"a,b,c\n1,2,3\n4,5,6",
	}

	for _, in := range inputs {
		if got := Serialize(Tokenize(in)); got != in {
			t.Errorf("Serialize(Tokenize(%q)) = %q", in, got)
		}
	}
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name string
		rows []Row
	}{
		{
			name: "plain rows",
			rows: []Row{{"name", "phone"}, {"Ada", "5551234567"}},
		},
		{
			name: "row of empty fields kept",
			rows: []Row{{"name", "phone"}, {"", ""}, {"Ada", "5551234567"}},
		},
		{
			name: "single empty column kept",
			rows: []Row{{"name"}, {""}, {"Ada"}},
		},
		{
			name: "empty last row kept",
			rows: []Row{{"name", "phone"}, {"", ""}},
		},
		{
			name: "quoted fields",
			rows: []Row{{"note", "x"}, {"a, b", `say "hi"`}, {"multi\nline", ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := Serialize(tt.rows)
			if got := ParseOutput(text); !reflect.DeepEqual(got, tt.rows) {
				t.Errorf("ParseOutput(%q) = %q, want %q", text, got, tt.rows)
			}
		})
	}

	if got := ParseOutput(""); got != nil {
		t.Errorf("ParseOutput(\"\") = %q, want nil", got)
	}
}

func TestParseOutput_MatchesPipelineOutput(t *testing.T) {
	res, err := Run("name,phone\n\",\",123\nAda,5551234567", []string{"name", "phone"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []Row{{"name", "phone"}, {"", ""}, {"Ada", "5551234567"}}
	if !reflect.DeepEqual(res.ValidRows, want) {
		t.Fatalf("ValidRows = %q, want %q", res.ValidRows, want)
	}
	if got := ParseOutput(Serialize(res.ValidRows)); !reflect.DeepEqual(got, want) {
		t.Errorf("ParseOutput(Serialize(rows)) = %q, want %q", got, want)
	}
}
