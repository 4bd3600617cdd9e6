package store

import (
	"path/filepath"
	"testing"

	"src.calc.sh/pkg/store/storetest"
	"src.calc.sh/pkg/testutil"
)

func TestOperations(t *testing.T) {
	storetest.TestOperations(t, MustTempStore(t))
}

func TestVars(t *testing.T) {
	storetest.TestVars(t, MustTempStore(t))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dbname := filepath.Join(testutil.TempDir(t), "db.bolt")
	st, err := NewStore(dbname)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddOperation("1+2", 3); err != nil {
		t.Fatal(err)
	}
	if _, err := st.ClearOperations(); err != nil {
		t.Fatal(err)
	}
	if err := st.SetVar("ans", 3); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st, err = NewStore(dbname)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	// The sequence survives both the clear and the reopen.
	if op, err := st.AddOperation("2*2", 4); op.Seq != 2 || err != nil {
		t.Errorf("AddOperation -> %v, %v, want Seq 2, nil", op, err)
	}
	if vars, err := st.Vars(); vars["ans"] != 3 || err != nil {
		t.Errorf("Vars() -> %v, %v, want ans = 3", vars, err)
	}
}

func TestUnmarshalOp_Corrupt(t *testing.T) {
	if _, err := unmarshalOp(marshalSeq(1), []byte("abc")); err == nil {
		t.Errorf("unmarshalOp with short value returned no error")
	}
}
