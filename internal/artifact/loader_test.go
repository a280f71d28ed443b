package artifact

import (
	"testing"
)

const sampleArtifact = `{
  "sources": {
    "src/Counter.sol": [
      {
        "version": "0.8.24",
        "build_id": "abc123",
        "profile": "default",
        "source_file": {
          "id": 0,
          "ast": {"nodeType": "SourceUnit", "id": 1, "src": "0:100:0"}
        }
      },
      {
        "build_id": "abc123",
        "profile": "default",
        "source_file": {
          "id": 1,
          "ast": {"nodeType": "SourceUnit", "id": 2, "src": "0:50:1"}
        }
      }
    ]
  },
  "errors": [
    {
      "sourceLocation": {"file": "src/Counter.sol", "start": 10, "end": 20},
      "type": "Warning",
      "errorCode": "2072",
      "severity": "warning",
      "message": "Unused local variable."
    },
    {
      "sourceLocation": {"file": "src/Counter.sol", "start": 5},
      "type": "Error",
      "errorCode": "7576",
      "severity": "error",
      "message": "Undeclared identifier."
    },
    {
      "sourceLocation": {"file": "src/Counter.sol", "start": 1, "end": 2},
      "type": "Error",
      "errorCode": 9574,
      "severity": "error",
      "message": "Type mismatch."
    }
  ],
  "build_infos": [
    {
      "id": "build-1",
      "source_id_to_path": {"0": "/work/src/Counter.sol"},
      "language": "Solidity"
    },
    {
      "id": "build-2",
      "source_id_to_path": {"1": "/work/src/Other.sol"}
    }
  ]
}`

func TestDecodeKeepsOnlyCompleteRecords(t *testing.T) {
	root, stats, err := Decode([]byte(sampleArtifact))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	files := root.Sources["src/Counter.sol"]
	if len(files) != 1 {
		t.Fatalf("expected 1 compiled file, got %d", len(files))
	}
	cf := files[0]
	if cf.SourceID != 0 || cf.Version != "0.8.24" || cf.BuildID != "abc123" || cf.Profile != "default" {
		t.Errorf("unexpected compiled file: %+v", cf)
	}
	if cf.AST["nodeType"] != "SourceUnit" {
		t.Errorf("AST not preserved: %v", cf.AST)
	}

	if len(root.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(root.Diagnostics))
	}
	warn := root.Diagnostics[0]
	if warn.Kind != SevWarning || warn.Severity != SevWarning || warn.Code != "2072" {
		t.Errorf("unexpected diagnostic: %+v", warn)
	}
	if warn.Location != (SourceLocation{File: "src/Counter.sol", Start: 10, End: 20}) {
		t.Errorf("unexpected location: %+v", warn.Location)
	}
	// Numeric errorCode is normalized to its decimal string.
	if root.Diagnostics[1].Code != "9574" {
		t.Errorf("numeric errorCode: got %q", root.Diagnostics[1].Code)
	}

	if len(root.BuildInfos) != 1 {
		t.Fatalf("expected 1 build info, got %d", len(root.BuildInfos))
	}
	if root.BuildInfos[0].SourceIDToPath["0"] != "/work/src/Counter.sol" {
		t.Errorf("unexpected build info: %+v", root.BuildInfos[0])
	}

	want := LoadStats{SourcesDropped: 1, DiagnosticsDropped: 1, BuildInfosDropped: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if stats.Total() != 3 {
		t.Errorf("stats.Total() = %d, want 3", stats.Total())
	}
}

func TestDecodeDropsWrongTypedRecords(t *testing.T) {
	// A record whose subfield has the wrong JSON type must be dropped like
	// any other incomplete record, never abort the whole load.
	doc := `{
	  "sources": {
	    "src/Counter.sol": [
	      {
	        "version": "0.8.24",
	        "build_id": "abc123",
	        "profile": "default",
	        "source_file": {
	          "id": "not-an-int",
	          "ast": {"nodeType": "SourceUnit", "id": 1, "src": "0:100:0"}
	        }
	      },
	      {
	        "version": "0.8.24",
	        "build_id": "abc123",
	        "profile": "default",
	        "source_file": {
	          "id": 1,
	          "ast": {"nodeType": "SourceUnit", "id": 2, "src": "0:50:1"}
	        }
	      }
	    ]
	  },
	  "errors": [
	    {
	      "sourceLocation": {"file": "src/Counter.sol", "start": "ten", "end": 20},
	      "type": "Warning",
	      "errorCode": "2072",
	      "severity": "warning",
	      "message": "Unused local variable."
	    }
	  ],
	  "build_infos": [
	    {
	      "id": "build-1",
	      "source_id_to_path": 42,
	      "language": "Solidity"
	    },
	    {
	      "id": "build-2",
	      "source_id_to_path": {"1": "/work/src/Counter.sol"},
	      "language": "Solidity"
	    }
	  ]
	}`

	root, stats, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	files := root.Sources["src/Counter.sol"]
	if len(files) != 1 {
		t.Fatalf("expected the well-typed compiled file to survive, got %d", len(files))
	}
	if files[0].SourceID != 1 {
		t.Errorf("kept the wrong record: %+v", files[0])
	}
	if len(root.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %d", len(root.Diagnostics))
	}
	if len(root.BuildInfos) != 1 || root.BuildInfos[0].ID != "build-2" {
		t.Errorf("unexpected build infos: %+v", root.BuildInfos)
	}

	want := LoadStats{SourcesDropped: 1, DiagnosticsDropped: 1, BuildInfosDropped: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestDecodeMalformedDocument(t *testing.T) {
	if _, _, err := Decode([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed document")
	}
	if _, _, err := Decode([]byte(`{"sources": 42}`)); err == nil {
		t.Fatal("expected error for wrong top-level shape")
	}
}

func TestDecodeEmptyDocument(t *testing.T) {
	root, stats, err := Decode([]byte(`{}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(root.Sources) != 0 || len(root.Diagnostics) != 0 || len(root.BuildInfos) != 0 {
		t.Errorf("expected empty root, got %+v", root)
	}
	if stats.Total() != 0 {
		t.Errorf("expected no drops, got %+v", stats)
	}
}

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"warning", SevWarning, true},
		{"Warning", SevWarning, true},
		{"ERROR", SevError, true},
		{"error", SevError, true},
		{"info", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseSeverity(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ParseSeverity(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
