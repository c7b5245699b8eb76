package plugins

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const (
	vueRuntime = "vue/dist/vue.esm-bundler.js"
	sfcBinding = "__sfc__"
)

var (
	exportDefault = regexp.MustCompile(`(?m)^\s*export\s+default\s+`)

	vueFeatureFlags = map[string]string{
		"__VUE_OPTIONS_API__":                     "true",
		"__VUE_PROD_DEVTOOLS__":                   "false",
		"__VUE_PROD_HYDRATION_MISMATCH_DETAILS__": "false",
	}
)

// Vue returns an esbuild plugin which compiles .vue single-file components. Templates are
// shipped as strings and compiled by the Vue runtime in the browser.
func Vue() api.Plugin {
	return api.Plugin{
		Name: "vue",
		Setup: func(build api.PluginBuild) {
			configureVue(build.InitialOptions)

			build.OnLoad(api.OnLoadOptions{Filter: `\.vue$`}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				src, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}

				module, loader, warnings, err := CompileSFC(args.Path, src)
				if err != nil {
					return api.OnLoadResult{
						Errors: []api.Message{{Text: err.Error(), Location: &api.Location{File: args.Path}}},
					}, nil
				}

				return api.OnLoadResult{
					Contents:   &module,
					Loader:     loader,
					ResolveDir: filepath.Dir(args.Path),
					Warnings:   warnings,
				}, nil
			})
		},
	}
}

// configureVue points "vue" at the build with the template compiler and sets the
// compile time feature flags the runtime expects, keeping any caller supplied values.
func configureVue(opts *api.BuildOptions) {
	if opts == nil {
		return
	}

	if opts.Alias == nil {
		opts.Alias = map[string]string{}
	}
	if _, ok := opts.Alias["vue"]; !ok {
		opts.Alias["vue"] = vueRuntime
	}

	if opts.Define == nil {
		opts.Define = map[string]string{}
	}
	for k, v := range vueFeatureFlags {
		if _, ok := opts.Define[k]; !ok {
			opts.Define[k] = v
		}
	}

	if !slices.Contains(opts.ResolveExtensions, ".vue") && len(opts.ResolveExtensions) > 0 {
		opts.ResolveExtensions = append(opts.ResolveExtensions, ".vue")
	}
}

// CompileSFC turns a component source into a module for esbuild.
func CompileSFC(path string, src []byte) (string, api.Loader, []api.Message, error) {
	desc, err := ParseSFC(src)
	if err != nil {
		return "", api.LoaderNone, nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := desc.Validate(); err != nil {
		return "", api.LoaderNone, nil, fmt.Errorf("%s: %w", path, err)
	}

	script := desc.Script.Content
	if !exportDefault.MatchString(script) {
		return "", api.LoaderNone, nil, fmt.Errorf("%s: <script> has no export default", path)
	}
	script = exportDefault.ReplaceAllStringFunc(script, replaceOnce())

	tmpl, err := jsString(strings.TrimSpace(desc.Template.Content))
	if err != nil {
		return "", api.LoaderNone, nil, err
	}

	var (
		b        strings.Builder
		warnings []api.Message
	)

	b.WriteString(script)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s.template = %s;\n", sfcBinding, tmpl)

	for _, style := range desc.Styles {
		if style.Has("scoped") {
			warnings = append(warnings, api.Message{
				Text:     "scoped styles are injected globally",
				Location: &api.Location{File: path},
			})
		}
		if lang := style.Lang(); lang != "" && lang != "css" {
			return "", api.LoaderNone, nil, fmt.Errorf("%s: unsupported style lang %q", path, lang)
		}

		css, err := jsString(style.Content)
		if err != nil {
			return "", api.LoaderNone, nil, err
		}
		file, err := jsString(filepath.Base(path))
		if err != nil {
			return "", api.LoaderNone, nil, err
		}
		fmt.Fprintf(&b, "if (typeof document !== \"undefined\") {\n"+
			"  const el = document.createElement(\"style\");\n"+
			"  el.setAttribute(\"data-vue-file\", %s);\n"+
			"  el.textContent = %s;\n"+
			"  document.head.appendChild(el);\n"+
			"}\n", file, css)
	}

	for _, custom := range desc.Custom {
		warnings = append(warnings, api.Message{
			Text:     fmt.Sprintf("custom block <%s> ignored", custom.Tag),
			Location: &api.Location{File: path},
		})
	}

	fmt.Fprintf(&b, "export default %s;\n", sfcBinding)

	loader := api.LoaderJS
	switch desc.Script.Lang() {
	case "", "js":
	case "ts":
		loader = api.LoaderTS
	case "jsx":
		loader = api.LoaderJSX
	case "tsx":
		loader = api.LoaderTSX
	default:
		return "", api.LoaderNone, nil, fmt.Errorf("%s: unsupported script lang %q", path, desc.Script.Lang())
	}

	return b.String(), loader, warnings, nil
}

// jsString quotes s as a JavaScript string literal, leaving markup unescaped.
func jsString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func replaceOnce() func(string) string {
	done := false
	return func(match string) string {
		if done {
			return match
		}
		done = true
		// keep the leading whitespace the pattern consumed
		indent := match[:len(match)-len(strings.TrimLeft(match, " \t\r\n"))]
		return indent + "const " + sfcBinding + " = "
	}
}
