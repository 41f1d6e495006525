package security

import (
	"strings"
	"testing"
)

// TestSanitize_AllowedTags は許可タグが通過することをテストする。
func TestSanitize_AllowedTags(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"段落", "<p>鍋に水を入れる</p>", "<p>鍋に水を入れる</p>"},
		{"改行", "弱火で煮る<br>アクを取る", "弱火で煮る<br>アクを取る"},
		{"箇条書き", "<ul><li>玉ねぎ</li><li>にんじん</li></ul>", "<ul><li>玉ねぎ</li><li>にんじん</li></ul>"},
		{"番号付きリスト", "<ol><li>切る</li><li>炒める</li></ol>", "<ol><li>切る</li><li>炒める</li></ol>"},
		{"強調", "<strong>沸騰させない</strong>こと", "<strong>沸騰させない</strong>こと"},
		{"引用", "<blockquote>祖母のレシピより</blockquote>", "<blockquote>祖母のレシピより</blockquote>"},
		{"コード", "<pre><code>180℃ 20分</code></pre>", "<pre><code>180℃ 20分</code></pre>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_RemovesDangerousContent は危険なコンテンツが除去されることをテストする。
func TestSanitize_RemovesDangerousContent(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name     string
		input    string
		excluded string
	}{
		{"scriptタグ", `<p>手順</p><script>alert(1)</script>`, "<script"},
		{"iframeタグ", `<iframe src="https://evil.example.com"></iframe>`, "<iframe"},
		{"styleタグ", `<style>body{display:none}</style><p>本文</p>`, "<style"},
		{"onclickイベント属性", `<p onclick="alert(1)">クリック</p>`, "onclick"},
		{"onerror付きimg", `<img src="x" onerror="alert(1)">`, "<img"},
		{"リンク", `<a href="javascript:alert(1)">リンク</a>`, "<a"},
		{"画像埋め込み", `<img src="https://example.com/x.png">`, "<img"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			if strings.Contains(got, tt.excluded) {
				t.Errorf("Sanitize(%q) = %q, %qが除去されていません", tt.input, got, tt.excluded)
			}
		})
	}
}

// TestSanitize_EmptyInput は空文字列の入力に空文字列を返すことをテストする。
func TestSanitize_EmptyInput(t *testing.T) {
	s := NewContentSanitizer()
	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want \"\"", got)
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力を返すことをテストする。
func TestSanitize_Idempotent(t *testing.T) {
	s := NewContentSanitizer()
	input := `<p>手順</p><script>alert(1)</script><strong>注意</strong>`

	first := s.Sanitize(input)
	second := s.Sanitize(first)
	if first != second {
		t.Errorf("サニタイズが冪等ではありません: %q != %q", first, second)
	}
}

// TestSanitizeStrict は全てのタグが除去されることをテストする。
func TestSanitizeStrict(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		input string
		want  string
	}{
		{"<p>肉じゃが</p>", "肉じゃが"},
		{"<strong>絶品</strong>カレー", "絶品カレー"},
		{"プレーンテキスト", "プレーンテキスト"},
		{`<script>alert(1)</script>`, ""},
	}

	for _, tt := range tests {
		if got := s.SanitizeStrict(tt.input); got != tt.want {
			t.Errorf("SanitizeStrict(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
