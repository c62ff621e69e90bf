package sftp

import (
	"os"
	"regexp"
	"strings"
	"testing"
	"time"
)

const (
	typeDirectory = "d"
	typeFile      = "[^d]"
)

func TestFormatLongnameWithEncodingDirectory(t *testing.T) {
	path := "encoding"
	item, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	result := FormatLongname(item, nil)
	formatLongnameTestHelper(t, result, typeDirectory, path)
}

func TestFormatLongnameWithGoModFile(t *testing.T) {
	path := "go.mod"
	item, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	result := FormatLongname(item, nil)
	formatLongnameTestHelper(t, result, typeFile, path)
}

func TestFormatLongnameWithOSLookup(t *testing.T) {
	path := "go.mod"
	item, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	result := FormatLongname(item, osIDLookup{})
	formatLongnameTestHelper(t, result, typeFile, path)
}

func TestFormatLongnameNilFileInfo(t *testing.T) {
	if got := FormatLongname(nil, nil); got != "" {
		t.Errorf("FormatLongname(nil, nil) = %q, want empty string", got)
	}
}

/*
   The format of the `longname' field is unspecified by this protocol.
   It MUST be suitable for use in the output of a directory listing
   command (in fact, the recommended operation for a directory listing
   command is to simply display this data).  However, clients SHOULD NOT
   attempt to parse the longname field for file attributes; they SHOULD
   use the attrs field instead.

    The recommended format for the longname field is as follows:

        -rwxr-xr-x   1 mjos     staff      348911 Mar 25 14:29 t-filexfer
        1234567890 123 12345678 12345678 12345678 123456789012

   N.B.: FileZilla does parse this ls formatting, and so not rendering it
   on any particular GOOS/GOARCH can cause compatibility issues with this client.
*/
func formatLongnameTestHelper(t *testing.T, result, expectedType, path string) {
	// using regular expressions to make tests work on all systems
	t.Log(result)

	sparce := strings.Split(result, " ")

	var fields []string
	for _, field := range sparce {
		if field == "" {
			continue
		}

		fields = append(fields, field)
	}

	perms, linkCnt, user, group, size := fields[0], fields[1], fields[2], fields[3], fields[4]
	dateTime := strings.Join(fields[5:8], " ")
	filename := fields[8]

	// permissions (len 10, "drwxr-xr-x")
	const (
		rwxs = "[-r][-w][-xsS]"
		rwxt = "[-r][-w][-xtT]"
	)
	if ok, err := regexp.MatchString("^"+expectedType+rwxs+rwxs+rwxt+"$", perms); !ok {
		if err != nil {
			t.Fatal("unexpected error:", err)
		}

		t.Errorf("FormatLongname(%q): permission field mismatch, got: %#v", path, perms)
	}

	// link count (len 3, number)
	const number = "(?:[0-9]+)"
	if ok, err := regexp.MatchString("^"+number+"$", linkCnt); !ok {
		if err != nil {
			t.Fatal("unexpected error:", err)
		}

		t.Errorf("FormatLongname(%q): link count field mismatch, got: %#v", path, linkCnt)
	}

	// username / uid (len 8, number or string)
	const name = "(?:[a-zA-Z_][a-zA-Z0-9_.-]*)"
	if ok, err := regexp.MatchString("^(?:"+number+"|"+name+")+$", user); !ok {
		if err != nil {
			t.Fatal("unexpected error:", err)
		}

		t.Errorf("FormatLongname(%q): username / uid mismatch, got: %#v", path, user)
	}

	// groupname / gid (len 8, number or string)
	if ok, err := regexp.MatchString("^(?:"+number+"|"+name+")+$", group); !ok {
		if err != nil {
			t.Fatal("unexpected error:", err)
		}

		t.Errorf("FormatLongname(%q): groupname / gid mismatch, got: %#v", path, group)
	}

	// filesize (len 8)
	if ok, err := regexp.MatchString("^"+number+"$", size); !ok {
		if err != nil {
			t.Fatal("unexpected error:", err)
		}

		t.Errorf("FormatLongname(%q): filesize field mismatch, got: %#v", path, size)
	}

	// mod time (len 12, e.g. Aug  9 19:46)
	_, err := time.Parse("Jan 2 15:04", dateTime)
	if err != nil {
		_, err = time.Parse("Jan 2 2006", dateTime)
		if err != nil {
			t.Errorf("FormatLongname.dateTime = %#v should match `Jan 2 15:04` or `Jan 2 2006`: %+v", dateTime, err)
		}
	}

	// filename
	if path != filename {
		t.Errorf("FormatLongname.filename = %#v, expected: %#v", filename, path)
	}
}
