package plugins

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const counterSFC = `<template>
  <div class="counter">
    <template v-if="count > 0"><MyButton @click="inc" /></template>
    <span>{{ count }}</span>
  </div>
</template>

<script lang="ts">
export default {
  data() {
    return { count: 0 }
  },
}
</script>

<style scoped>
.counter { color: red; }
</style>

<i18n>{"en": {}}</i18n>
`

func TestParseSFC(t *testing.T) {
	desc, err := ParseSFC([]byte(counterSFC))
	require.NoError(t, err)

	require.NotNil(t, desc.Template)
	require.Contains(t, desc.Template.Content, `<template v-if="count > 0"><MyButton @click="inc" /></template>`)
	require.Contains(t, desc.Template.Content, "{{ count }}")

	require.NotNil(t, desc.Script)
	require.Equal(t, "ts", desc.Script.Lang())
	require.Contains(t, desc.Script.Content, "export default {")

	require.Len(t, desc.Styles, 1)
	require.True(t, desc.Styles[0].Has("scoped"))
	require.Contains(t, desc.Styles[0].Content, ".counter { color: red; }")

	require.Len(t, desc.Custom, 1)
	require.Equal(t, "i18n", desc.Custom[0].Tag)

	require.NoError(t, desc.Validate())
}

func TestParseSFC_errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{
			name:    "script setup",
			src:     "<template><p/></template><script setup>const a = 1</script>",
			wantErr: ErrScriptSetup,
		},
		{
			name:    "no template",
			src:     "<script>export default {}</script>",
			wantErr: ErrNoTemplate,
		},
		{
			name:    "no script",
			src:     "<template><p>hi</p></template>",
			wantErr: ErrNoScript,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := ParseSFC([]byte(tt.src))
			require.NoError(t, err)
			require.ErrorIs(t, desc.Validate(), tt.wantErr)
		})
	}
}

func TestParseSFC_duplicateScript(t *testing.T) {
	_, err := ParseSFC([]byte("<script>export default {}</script><script>export default {}</script>"))
	require.ErrorIs(t, err, ErrManyScripts)
}

func TestParseSFC_unterminated(t *testing.T) {
	_, err := ParseSFC([]byte("<template><div>"))
	require.Error(t, err)
}

func TestCompileSFC(t *testing.T) {
	module, loader, warnings, err := CompileSFC("/src/Counter.vue", []byte(counterSFC))
	require.NoError(t, err)

	require.Equal(t, "ts", loaderName(loader))
	require.Contains(t, module, "const __sfc__ = {")
	require.NotContains(t, module, "export default {")
	require.Contains(t, module, `__sfc__.template = "<div class=\"counter\">`)
	require.Contains(t, module, `el.setAttribute("data-vue-file", "Counter.vue");`)
	require.Contains(t, module, "export default __sfc__;")
	require.Len(t, warnings, 2)
}

func TestCompileSFC_missingExport(t *testing.T) {
	_, _, _, err := CompileSFC("App.vue", []byte("<template><p/></template><script>const a = {}</script>"))
	require.ErrorContains(t, err, "no export default")
}

func TestCompileSFC_unsupportedStyleLang(t *testing.T) {
	src := "<template><p/></template><script>export default {}</script><style lang=\"scss\">a{}</style>"
	_, _, _, err := CompileSFC("App.vue", []byte(src))
	require.ErrorContains(t, err, `unsupported style lang "scss"`)
}
