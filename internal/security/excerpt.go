package security

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractExcerpt はHTMLコンテンツからプレーンテキストの抜粋を生成する。
// レシピ一覧での説明文プレビューに使用する。
// script/styleタグの中身は捨て、テキストノードのみを連結して
// 指定文字数（rune単位）で切り詰める。切り詰めた場合は末尾に「…」を付ける。
func ExtractExcerpt(rawHTML string, maxRunes int) string {
	if rawHTML == "" || maxRunes <= 0 {
		return ""
	}

	var sb strings.Builder
	skipDepth := 0

	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return truncateRunes(collapseWhitespace(sb.String()), maxRunes)

		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if isInvisibleTag(string(tn)) {
				skipDepth++
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if isInvisibleTag(string(tn)) && skipDepth > 0 {
				skipDepth--
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			sb.Write(tokenizer.Text())
			sb.WriteByte(' ')
		}
	}
}

// isInvisibleTag は表示テキストを持たないタグかを判定する。
func isInvisibleTag(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

// collapseWhitespace は連続する空白を1つのスペースにまとめる。
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes は文字列をrune単位で切り詰める。
func truncateRunes(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "…"
}
