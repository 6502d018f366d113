package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test Plan for DetectMode / NewParserEnv:
// - Each known pragma word maps to its Mode
// - Missing header, missing comment, unknown word all yield ModeDefault
// - A shebang line before the header is skipped
// - "<?hhvm" is not mistaken for a header
// - Only the experimental pragma sets ExperimentalMode in the env
// - Every other env field stays at its default

func TestDetectMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want Mode
	}{
		{"empty", "", ModeDefault},
		{"no header", "function f() {}", ModeDefault},
		{"bare header", "<?hh\nfunction f() {}", ModeDefault},
		{"strict", "<?hh // strict\n", ModeStrict},
		{"partial", "<?hh // partial\n", ModePartial},
		{"decl", "<?hh // decl\n", ModeDecl},
		{"experimental", "<?hh // experimental\nfunction f() {}", ModeExperimental},
		{"experimental no space", "<?hh //experimental", ModeExperimental},
		{"tabs", "<?hh\t//\tstrict", ModeStrict},
		{"unknown word", "<?hh // whatever\n", ModeDefault},
		{"block comment", "<?hh /* strict */\n", ModeDefault},
		{"pragma on next line", "<?hh\n// strict\n", ModeDefault},
		{"php tag", "<?php // strict\n", ModeDefault},
		{"hhvm tag", "<?hhvm // strict\n", ModeDefault},
		{"shebang", "#!/usr/bin/env hhvm\n<?hh // experimental\n", ModeExperimental},
		{"shebang only", "#!/usr/bin/env hhvm", ModeDefault},
		{"word prefix", "<?hh // strictly\n", ModeDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DetectMode([]byte(tt.text)))
		})
	}
}

func TestModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "default", ModeDefault.String())
	assert.Equal(t, "strict", ModeStrict.String())
	assert.Equal(t, "experimental", ModeExperimental.String())
	assert.Equal(t, "default", Mode(42).String())
}

func TestNewParserEnv(t *testing.T) {
	t.Parallel()

	env := NewParserEnv(ModeExperimental)
	assert.True(t, env.ExperimentalMode)
	assert.Equal(t, ParserEnv{ExperimentalMode: true}, env)

	for _, m := range []Mode{ModeDefault, ModeStrict, ModePartial, ModeDecl} {
		assert.Equal(t, ParserEnv{}, NewParserEnv(m), "mode %s", m)
	}
}

func TestModePropagatesToScanner(t *testing.T) {
	t.Parallel()

	var got ParserEnv
	s := ScannerFunc(func(src SourceText, env ParserEnv) (*ScanOutput, error) {
		got = env
		return &ScanOutput{Root: &Root{Kind: "script"}}, nil
	})

	_, err := Extract(s, "a.hack", []byte("<?hh // experimental\n"))
	assert.NoError(t, err)
	assert.True(t, got.ExperimentalMode)

	_, err = Extract(s, "b.hack", []byte("<?hh // strict\n"))
	assert.NoError(t, err)
	assert.False(t, got.ExperimentalMode)
}
