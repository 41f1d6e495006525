// Package web はサーバーレンダリングされた画面のハンドラーとルーティングを提供する。
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/recipeman/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames はレイアウトと組み合わせてコンパイルするページテンプレートの一覧。
var pageNames = []string{
	"login.html",
	"register.html",
	"recipe_list.html",
	"recipe_detail.html",
	"recipe_form.html",
	"error.html",
}

// PageData は全ページ共通のテンプレートデータ。
type PageData struct {
	Title         string
	Authenticated bool
	User          *model.User
	CSRFToken     string
	ErrorMessage  string
	Data          any
}

// Renderer はページテンプレートのレンダリングを行う。
// テンプレートはバイナリに埋め込まれ、起動時に1回コンパイルされる。
type Renderer struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

// templateFuncs はテンプレートから使用するヘルパー関数。
var templateFuncs = template.FuncMap{
	// proxyImage は外部画像URLを画像プロキシ経由のパスに変換する。
	"proxyImage": func(rawURL string) string {
		if rawURL == "" {
			return ""
		}
		return "/img?url=" + url.QueryEscape(rawURL)
	},
	// safeHTML はサニタイズ済みのHTMLをエスケープせずに出力する。
	// 必ずContentSanitizerを通した文字列にのみ使用すること。
	"safeHTML": func(s string) template.HTML {
		return template.HTML(s)
	},
	// dict は再帰テンプレートへ複数の値を渡すためのヘルパー。
	"dict": func(pairs ...any) (map[string]any, error) {
		if len(pairs)%2 != 0 {
			return nil, fmt.Errorf("dict requires an even number of arguments")
		}
		m := make(map[string]any, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			key, ok := pairs[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings")
			}
			m[key] = pairs[i+1]
		}
		return m, nil
	},
}

// NewRenderer は埋め込みテンプレートをコンパイルしてRendererを生成する。
// テンプレートの構文エラーは起動エラーとして扱う。
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template)

	for _, name := range pageNames {
		t, err := template.New("layout.html").
			Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		logger:    logger,
	}, nil
}

// Render は指定ページをレイアウト付きでレンダリングする。
// テンプレート実行エラーは500として処理する。
func (rd *Renderer) Render(w http.ResponseWriter, status int, name string, data *PageData) {
	t, ok := rd.templates[name]
	if !ok {
		rd.logger.Error("未登録のテンプレートが指定されました",
			slog.String("template", name),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		rd.logger.Error("テンプレートのレンダリングに失敗しました",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
	}
}

// RenderError はエラーページをレンダリングする。
// APIErrorの場合はユーザー向けメッセージと対処方法を表示する。
func (rd *Renderer) RenderError(w http.ResponseWriter, status int, err error, base *PageData) {
	message := "エラーが発生しました。"
	action := "しばらく待ってから再試行してください。"

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		message = apiErr.Message
		action = apiErr.Action
	}

	base.Title = "エラー"
	base.Data = map[string]string{
		"Message": message,
		"Action":  action,
	}
	rd.Render(w, status, "error.html", base)
}
