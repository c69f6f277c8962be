package storage

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-storage-core/backend/internal/platform/apperr"
)

const (
	orgA = "2b0c6a9e-0000-4000-8000-00000000000a"
	orgB = "2b0c6a9e-0000-4000-8000-00000000000b"
)

func TestScope_PrependsPrefix(t *testing.T) {
	got, err := Scoper{}.Scope("general/report.pdf", orgA)
	require.NoError(t, err)
	assert.Equal(t, "orgs/"+orgA+"/general/report.pdf", got)
}

func TestScope_SameTenantUnchanged(t *testing.T) {
	p := "orgs/" + orgA + "/general/report.pdf"
	got, err := Scoper{}.Scope(p, orgA)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestScope_CrossTenantDenied(t *testing.T) {
	p := "orgs/" + orgB + "/secret.txt"
	_, err := Scoper{}.Scope(p, orgA)
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied), "got %v", err)

	got, err := Scoper{}.Scope(p, orgB)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestScope_ValidationErrors(t *testing.T) {
	deep := strings.Repeat("d/", DefaultMaxDepth) + "f.txt"
	cases := []string{
		"",
		"/etc/passwd",
		"/orgs/" + orgA + "/x",
		"../x",
		"a/../../b",
		"a/..",
		"orgs/" + orgA + "/../" + orgB + "/x",
		`a\b`,
		"a//b",
		"./a",
		deep,
		"orgs/" + orgA + "/" + deep,
		"orgs/" + orgA,
	}
	for _, raw := range cases {
		for _, org := range []string{orgA, orgB, ""} {
			_, err := Scoper{}.Scope(raw, org)
			if raw == "orgs/"+orgA && org == orgB {
				assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied), "raw=%q org=%q: %v", raw, org, err)
				continue
			}
			if raw == "orgs/"+orgA && org == "" {
				assert.Error(t, err)
				continue
			}
			assert.True(t, apperr.IsKind(err, apperr.KindValidation), "raw=%q org=%q: %v", raw, org, err)
		}
	}
}

func TestScope_TenantRootName(t *testing.T) {
	got, err := Scoper{}.Scope("orgs", orgA)
	require.NoError(t, err)
	assert.Equal(t, "orgs/"+orgA+"/orgs", got)

	again, err := Scoper{}.Scope(got, orgA)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	_, err = Scoper{}.Scope("orgs/", orgA)
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied), "got %v", err)
}

func TestScope_DepthBoundary(t *testing.T) {
	s := Scoper{MaxDepth: 3}
	_, err := s.Scope("a/b/c", orgA)
	require.NoError(t, err)
	_, err = s.Scope("a/b/c/d", orgA)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = s.Scope("orgs/"+orgA+"/a/b/c", orgA)
	require.NoError(t, err, "tenant prefix does not count towards depth")
}

func TestScope_NoOrganization(t *testing.T) {
	for _, org := range []string{"", "a/b", "..", `x\y`} {
		_, err := Scoper{}.Scope("general/x.txt", org)
		assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied), "org=%q: %v", org, err)
	}
}

func TestScopeDir(t *testing.T) {
	got, err := Scoper{}.ScopeDir("", orgA)
	require.NoError(t, err)
	assert.Equal(t, "orgs/"+orgA, got)

	got, err = Scoper{}.ScopeDir("orgs/"+orgA+"/", orgA)
	require.NoError(t, err)
	assert.Equal(t, "orgs/"+orgA, got)

	got, err = Scoper{}.ScopeDir("images/", orgA)
	require.NoError(t, err)
	assert.Equal(t, "orgs/"+orgA+"/images", got)

	_, err = Scoper{}.ScopeDir("orgs/"+orgB, orgA)
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))
}

func randomPath(r *rand.Rand) string {
	alphabet := []string{"a", "b", "docs", "img", "x.txt", "orgs", orgA, orgB, "..", ".", "", "r.pdf"}
	n := 1 + r.Intn(DefaultMaxDepth+3)
	segs := make([]string, n)
	for i := range segs {
		segs[i] = alphabet[r.Intn(len(alphabet))]
	}
	p := strings.Join(segs, "/")
	if r.Intn(10) == 0 {
		p = "/" + p
	}
	return p
}

func TestScope_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	s := Scoper{}
	for i := 0; i < 5000; i++ {
		raw := randomPath(r)
		for _, org := range []string{orgA, orgB} {
			scoped, err := s.Scope(raw, org)

			hasBadSegment := strings.HasPrefix(raw, "/")
			for _, seg := range strings.Split(strings.TrimSuffix(raw, "/"), "/") {
				if seg == ".." {
					hasBadSegment = true
				}
			}
			if hasBadSegment {
				require.True(t, apperr.IsKind(err, apperr.KindValidation), "raw=%q: %v", raw, err)
				continue
			}
			if err != nil {
				kind := apperr.KindOf(err)
				require.Contains(t, []apperr.Kind{apperr.KindValidation, apperr.KindPermissionDenied}, kind, "raw=%q", raw)
				continue
			}

			require.True(t, strings.HasPrefix(scoped, Prefix(org)), "raw=%q scoped=%q", raw, scoped)
			again, err := s.Scope(scoped, org)
			require.NoError(t, err, "raw=%q scoped=%q", raw, scoped)
			require.Equal(t, scoped, again, "not idempotent for %q", raw)

			other := orgA
			if org == orgA {
				other = orgB
			}
			_, err = s.Scope(scoped, other)
			require.True(t, apperr.IsKind(err, apperr.KindPermissionDenied), "scoped=%q other=%q: %v", scoped, other, err)
		}
	}
}
