package vcs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
)

type fakePulls struct {
	pages     [][]*github.PullRequest
	diffs     map[int]string
	diffErrs  map[int]error
	listErr   error
	listCalls int
	rawCalls  []int
}

func (f *fakePulls) List(_ context.Context, _, _ string, opts *github.PullRequestListOptions) ([]*github.PullRequest, *github.Response, error) {
	if f.listErr != nil {
		return nil, nil, f.listErr
	}
	if f.listCalls >= len(f.pages) {
		return nil, &github.Response{}, nil
	}
	page := f.pages[f.listCalls]
	f.listCalls++

	resp := &github.Response{}
	if f.listCalls < len(f.pages) {
		resp.NextPage = f.listCalls + 1
	}
	return page, resp, nil
}

func (f *fakePulls) GetRaw(_ context.Context, _, _ string, number int, _ github.RawOptions) (string, *github.Response, error) {
	f.rawCalls = append(f.rawCalls, number)
	if err, ok := f.diffErrs[number]; ok {
		return "", nil, err
	}
	return f.diffs[number], &github.Response{}, nil
}

func mkPR(number int, title string, merged bool) *github.PullRequest {
	pr := &github.PullRequest{
		Number:  github.Int(number),
		Title:   github.String(title),
		HTMLURL: github.String(fmt.Sprintf("https://github.com/acme/widgets/pull/%d", number)),
	}
	if merged {
		pr.MergedAt = &github.Timestamp{Time: time.Now()}
	}
	return pr
}

func testClient(pulls *fakePulls) *Client {
	return newClient(pulls, Config{Owner: "acme", Repo: "widgets"}, zap.NewNop())
}

func TestListMergedChangesKeepsOnlyMerged(t *testing.T) {
	pulls := &fakePulls{
		pages: [][]*github.PullRequest{{
			mkPR(1, "feat: add widgets", true),
			mkPR(2, "closed without merging", false),
			mkPR(3, "fix: widget crash", true),
		}},
		diffs: map[int]string{1: "+widget\n", 3: "+fix\n"},
	}

	records, err := testClient(pulls).ListMergedChanges(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListMergedChanges() error = %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "1" || records[0].Description != "feat: add widgets" || records[0].DiffText != "+widget\n" {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[0].SourceURL != "https://github.com/acme/widgets/pull/1" {
		t.Errorf("source url = %q", records[0].SourceURL)
	}
	if records[1].ID != "3" {
		t.Errorf("record 1 = %+v", records[1])
	}
}

func TestListMergedChangesWalksPages(t *testing.T) {
	pulls := &fakePulls{
		pages: [][]*github.PullRequest{
			{mkPR(10, "feat: first page", true)},
			{mkPR(11, "feat: second page", true)},
		},
		diffs: map[int]string{10: "+a\n", 11: "+b\n"},
	}

	records, err := testClient(pulls).ListMergedChanges(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListMergedChanges() error = %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if pulls.listCalls != 2 {
		t.Errorf("list calls = %d, want 2", pulls.listCalls)
	}
}

func TestListMergedChangesSkipsFailedDiffs(t *testing.T) {
	pulls := &fakePulls{
		pages: [][]*github.PullRequest{{
			mkPR(1, "feat: good diff", true),
			mkPR(2, "feat: broken diff", true),
		}},
		diffs:    map[int]string{1: "+ok\n"},
		diffErrs: map[int]error{2: errors.New("406 diff too large")},
	}

	records, err := testClient(pulls).ListMergedChanges(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListMergedChanges() error = %v", err)
	}

	if len(records) != 1 || records[0].ID != "1" {
		t.Errorf("records = %+v, want only #1", records)
	}
}

func TestListMergedChangesHonorsLimit(t *testing.T) {
	pulls := &fakePulls{
		pages: [][]*github.PullRequest{{
			mkPR(1, "feat: one", true),
			mkPR(2, "feat: two", true),
			mkPR(3, "feat: three", true),
		}},
		diffs: map[int]string{1: "+1\n", 2: "+2\n", 3: "+3\n"},
	}

	records, err := testClient(pulls).ListMergedChanges(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListMergedChanges() error = %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if len(pulls.rawCalls) != 2 {
		t.Errorf("diff fetches = %v, want exactly 2", pulls.rawCalls)
	}
}

func TestListMergedChangesListFailure(t *testing.T) {
	pulls := &fakePulls{listErr: errors.New("401 bad credentials")}

	if _, err := testClient(pulls).ListMergedChanges(context.Background(), 0); err == nil {
		t.Fatal("expected listing error")
	}
}

func TestDescribeIncludesBody(t *testing.T) {
	pr := mkPR(5, "feat: add exports", true)
	pr.Body = github.String("Adds CSV export for widget reports.")

	got := describe(pr)
	if got != "feat: add exports\n\nAdds CSV export for widget reports." {
		t.Errorf("describe() = %q", got)
	}

	if got := describe(mkPR(6, "fix: crash", true)); got != "fix: crash" {
		t.Errorf("describe() without body = %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"complete", Config{Owner: "acme", Repo: "widgets"}, false},
		{"missing owner", Config{Repo: "widgets"}, true},
		{"missing repo", Config{Owner: "acme"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
