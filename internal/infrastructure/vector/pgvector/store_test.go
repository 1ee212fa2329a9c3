package pgvector

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &Store{db: db}, mock, func() { _ = db.Close() }
}

func TestSearchDecodesMetadataAndRegime(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "document_id", "chunk_index", "content", "metadata", "score"}).
		AddRow(int64(7), int64(3), 2, "alpha", []byte(`{"section":"Intro","page":4}`), 0.91).
		AddRow(int64(9), int64(3), 5, "beta", []byte(`{}`), 0.55)

	mock.ExpectQuery("SELECT id, document_id, chunk_index, content, metadata").
		WithArgs(sqlmock.AnyArg(), int64(3), 20).
		WillReturnRows(rows)

	list, err := store.Search(context.Background(), []float32{0.1, 0.2}, []int64{3}, 20)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if list.Regime != domain.RegimeCosine {
		t.Fatalf("expected cosine regime, got %q", list.Regime)
	}
	if len(list.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(list.Chunks))
	}
	first := list.Chunks[0]
	if first.ID != 7 || first.Metadata.Section != "Intro" {
		t.Fatalf("unexpected first chunk: %+v", first)
	}
	if first.Metadata.Page == nil || *first.Metadata.Page != 4 {
		t.Fatalf("expected page 4, got %v", first.Metadata.Page)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchWithoutDocumentsSkipsQuery(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	list, err := store.Search(context.Background(), []float32{0.1}, nil, 20)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(list.Chunks) != 0 || list.Regime != domain.RegimeCosine {
		t.Fatalf("expected empty cosine list, got %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchExpandsDocumentFilter(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "document_id", "chunk_index", "content", "metadata", "score"})

	mock.ExpectQuery(`WHERE document_id IN \(\$2,\$3\)`).
		WithArgs(sqlmock.AnyArg(), int64(1), int64(2), 10).
		WillReturnRows(rows)

	if _, err := store.Search(context.Background(), []float32{0.1}, []int64{1, 2}, 10); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
