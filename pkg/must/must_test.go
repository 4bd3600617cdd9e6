package must

import (
	"errors"
	"os"
	"testing"

	"src.calc.sh/pkg/testutil"
)

func TestOK(t *testing.T) {
	OK(nil)
	if v := OK1(42, nil); v != 42 {
		t.Errorf("OK1 -> %v, want 42", v)
	}
	if a, b := OK2("a", 1, nil); a != "a" || b != 1 {
		t.Errorf("OK2 -> (%v, %v), want (a, 1)", a, b)
	}
	err := errors.New("bad")
	for name, f := range map[string]func(){
		"OK":  func() { OK(err) },
		"OK1": func() { OK1(0, err) },
		"OK2": func() { OK2(0, 0, err) },
	} {
		if r := catch(f); r != err {
			t.Errorf("%s panicked with %v, want %v", name, r, err)
		}
	}
}

func TestCreateEmptyAndWriteFile(t *testing.T) {
	testutil.InTempDir(t)
	CreateEmpty("a/b/empty")
	WriteFile("c/file", "content")

	if data, err := os.ReadFile("a/b/empty"); err != nil || len(data) != 0 {
		t.Errorf("a/b/empty: got (%q, %v), want empty file", data, err)
	}
	if data, err := os.ReadFile("c/file"); err != nil || string(data) != "content" {
		t.Errorf("c/file: got (%q, %v), want content", data, err)
	}
}

func catch(f func()) (r any) {
	defer func() { r = recover() }()
	f()
	return nil
}

func TestListen(t *testing.T) {
	l := Listen("tcp", "127.0.0.1:0")
	defer l.Close()
	if l.Addr().Network() != "tcp" {
		t.Errorf("got network %q, want tcp", l.Addr().Network())
	}
	if r := catch(func() { Listen("bad-network", "") }); r == nil {
		t.Errorf("Listen with a bad network did not panic")
	}
}
