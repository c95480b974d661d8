package crawling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain path", "http://a.com/x", "http://a.com/x"},
		{"trailing slash", "http://a.com/x/", "http://a.com/x"},
		{"duplicate slashes", "http://a.com//x", "http://a.com/x"},
		{"fragment", "http://a.com/x#frag", "http://a.com/x"},
		{"query", "http://a.com/x?q=1", "http://a.com/x"},
		{"everything", "http://a.com//x//y/?q=1#top", "http://a.com/x/y"},
		{"bare host", "http://a.com", "http://a.com"},
		{"root slash", "http://a.com/", "http://a.com"},
		{"root with query", "https://a.com/?ref=nav", "https://a.com"},
		{"port kept", "http://a.com:8080/x/", "http://a.com:8080/x"},
		{"case preserved", "http://a.com/About/", "http://a.com/About"},
		{"encoded slash kept", "http://a.com/a%2Fb/", "http://a.com/a%2Fb"},
		{"encoded slash with duplicates", "http://a.com//docs//a%2fb//?q=1", "http://a.com/docs/a%2fb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_EquivalenceClass(t *testing.T) {
	variants := []string{
		"http://a.com/x/",
		"http://a.com/x",
		"http://a.com//x#frag",
		"http://a.com/x?q=1",
	}

	want, err := Normalize(variants[0])
	require.NoError(t, err)
	for _, v := range variants[1:] {
		got, err := Normalize(v)
		require.NoError(t, err)
		assert.Equal(t, want, got, "variant %s", v)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"http://a.com",
		"http://a.com/",
		"http://a.com///",
		"http://a.com/a//b///c/",
		"https://shop.example/products/widget?color=red#reviews",
		"http://a.com/path%20with%20spaces/",
		"http://a.com:8080//x/",
		"http://a.com/files/a%2Fb/",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once, err := Normalize(in)
			require.NoError(t, err)
			twice, err := Normalize(once)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}
}

func TestNormalize_InvalidURLs(t *testing.T) {
	inputs := []string{
		"",
		"not a url",
		"/relative/path",
		"http://",
		"http://a.com/%zz",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Normalize(in)
			assert.Error(t, err)
		})
	}
}

func TestInScope(t *testing.T) {
	tests := []struct {
		url  string
		host string
		want bool
	}{
		{"http://a.com/x", "a.com", true},
		{"https://a.com/x", "a.com", true},
		{"http://www.a.com/x", "a.com", false},
		{"http://sub.a.com/", "a.com", false},
		{"http://other.com/page", "a.com", false},
		{"http://a.com:8080/x", "a.com", false},
		{"mailto:info@a.com", "a.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, InScope(tt.url, tt.host))
		})
	}
}

func TestTargetHost(t *testing.T) {
	host, err := TargetHost("https://shop.example/")
	require.NoError(t, err)
	assert.Equal(t, "shop.example", host)

	_, err = TargetHost("/no/host")
	assert.Error(t, err)
}

func TestNormalize_EncodedSlashIsDistinct(t *testing.T) {
	encoded, err := Normalize("http://a.com/a%2Fb/")
	require.NoError(t, err)
	nested, err := Normalize("http://a.com/a/b/")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, nested)
}
