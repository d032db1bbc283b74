package vault

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/welltold/storygo/internal/pkg/record"
)

func TestWrongPath(t *testing.T) {
	Convey("Given a HTTP request for /invalid", t, func() {
		req := httptest.NewRequest("GET", "/invalid", nil)
		resp := httptest.NewRecorder()

		Convey("When the request is handled by the Router", func() {
			NewRouter(newTestData()).ServeHTTP(resp, req)

			Convey("Then the response should be a 404", func() {
				So(resp.Code, ShouldEqual, 404)
			})
		})
	})
}

func TestGetRecord(t *testing.T) {
	Convey("Given a request for an existing record", t, func() {
		req := httptest.NewRequest("GET", "/record/u1/id1", nil)
		resp := httptest.NewRecorder()

		Convey("When the request is handled by the Router", func() {
			NewRouter(newTestData()).ServeHTTP(resp, req)

			Convey("Then the response should be the snapshot", func() {
				So(resp.Code, ShouldEqual, 200)
				So(resp.Body.String(), ShouldContainSubstring, `"key":"u1/id1"`)
				So(resp.Body.String(), ShouldContainSubstring, `"exists":true`)
				So(resp.Body.String(), ShouldContainSubstring, `"status":"ready"`)
			})
		})
	})
}

func TestGetRecord_Missing(t *testing.T) {
	Convey("Given a request for an unknown record", t, func() {
		req := httptest.NewRequest("GET", "/record/u1/idX", nil)
		resp := httptest.NewRecorder()
		data := newTestData()
		data.RecordProvider = &testProvider{}

		Convey("When the request is handled by the Router", func() {
			NewRouter(data).ServeHTTP(resp, req)

			Convey("Then the response marks a missing record", func() {
				So(resp.Code, ShouldEqual, 200)
				So(resp.Body.String(), ShouldContainSubstring, `"exists":false`)
			})
		})
	})
}

func TestGetRecord_Fails(t *testing.T) {
	Convey("Given a failing record provider", t, func() {
		req := httptest.NewRequest("GET", "/record/u1/id1", nil)
		resp := httptest.NewRecorder()
		data := newTestData()
		data.RecordProvider = &testProvider{err: errors.New("olia")}

		Convey("When the request is handled by the Router", func() {
			NewRouter(data).ServeHTTP(resp, req)

			Convey("Then the response should be a 500", func() {
				So(resp.Code, ShouldEqual, 500)
			})
		})
	})
}

func TestList(t *testing.T) {
	Convey("Given a request for user records", t, func() {
		req := httptest.NewRequest("GET", "/records/u1", nil)
		resp := httptest.NewRecorder()

		Convey("When the request is handled by the Router", func() {
			NewRouter(newTestData()).ServeHTTP(resp, req)

			Convey("Then the response should list the records", func() {
				So(resp.Code, ShouldEqual, 200)
				So(resp.Body.String(), ShouldStartWith, `[{"id":"id1"`)
			})
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given a record merge request", t, func() {
		req := httptest.NewRequest("PUT", "/record/u1/id1", strings.NewReader(`{"title":"T"}`))
		resp := httptest.NewRecorder()
		data := newTestData()
		keeper := data.RecordKeeper.(*testKeeper)

		Convey("When the request is handled by the Router", func() {
			NewRouter(data).ServeHTTP(resp, req)

			Convey("Then the record is merged", func() {
				So(resp.Code, ShouldEqual, 200)
				So(resp.Body.String(), ShouldContainSubstring, `"created":true`)
				So(keeper.fields["title"], ShouldEqual, "T")
			})
		})
	})
}

func TestMerge_WrongBody(t *testing.T) {
	Convey("Given a merge request with broken body", t, func() {
		req := httptest.NewRequest("PUT", "/record/u1/id1", strings.NewReader(`olia`))
		resp := httptest.NewRecorder()

		Convey("When the request is handled by the Router", func() {
			NewRouter(newTestData()).ServeHTTP(resp, req)

			Convey("Then the response should be a 400", func() {
				So(resp.Code, ShouldEqual, 400)
			})
		})
	})
}

func TestDelete(t *testing.T) {
	Convey("Given a record delete request", t, func() {
		req := httptest.NewRequest("DELETE", "/record/u1/id1", nil)
		resp := httptest.NewRecorder()
		data := newTestData()
		deleter := data.RecordDeleter.(*testDeleter)

		Convey("When the request is handled by the Router", func() {
			NewRouter(data).ServeHTTP(resp, req)

			Convey("Then the record is deleted", func() {
				So(resp.Code, ShouldEqual, 200)
				So(deleter.userID, ShouldEqual, "u1")
				So(deleter.id, ShouldEqual, "id1")
			})
		})
	})
}

func newTestData() *ServiceData {
	rec := &record.Record{ID: "id1", Status: "ready"}
	return &ServiceData{
		RecordProvider: &testProvider{rec: rec},
		RecordKeeper:   &testKeeper{created: true},
		RecordDeleter:  &testDeleter{},
	}
}

type testProvider struct {
	rec *record.Record
	err error
}

func (p *testProvider) Get(userID string, id string) (*record.Record, bool, error) {
	if p.err != nil {
		return nil, false, p.err
	}
	if p.rec == nil {
		return nil, false, nil
	}
	return p.rec, true, nil
}

func (p *testProvider) List(userID string) ([]*record.Record, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.rec == nil {
		return nil, nil
	}
	return []*record.Record{p.rec}, nil
}

type testKeeper struct {
	created bool
	err     error
	fields  map[string]interface{}
}

func (k *testKeeper) CreateOrMerge(userID string, id string, fields map[string]interface{}) (bool, error) {
	k.fields = fields
	return k.created, k.err
}

type testDeleter struct {
	userID string
	id     string
	err    error
}

func (d *testDeleter) Delete(userID string, id string) error {
	d.userID = userID
	d.id = id
	return d.err
}
