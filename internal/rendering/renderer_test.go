package rendering

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonathan/ats-tailor/internal/latex"
	"github.com/jonathan/ats-tailor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCompiler is a function-field mock of latex.Compiler
type mockCompiler struct {
	sources     []string
	CompileFunc func(ctx context.Context, source string) ([]byte, string, error)
}

func (m *mockCompiler) Compile(ctx context.Context, source string) ([]byte, string, error) {
	m.sources = append(m.sources, source)
	if m.CompileFunc != nil {
		return m.CompileFunc(ctx, source)
	}
	return []byte("%PDF"), "Output written on main.pdf (1 page, 10 bytes).", nil
}

// pageSequence returns the given page counts in order, repeating the last
type pageSequence struct {
	pages []int
	calls int
}

func (p *pageSequence) Count(_ context.Context, _ []byte, _ string) (int, error) {
	i := p.calls
	if i >= len(p.pages) {
		i = len(p.pages) - 1
	}
	p.calls++
	return p.pages[i], nil
}

var _ latex.Compiler = (*mockCompiler)(nil)
var _ latex.PageCounter = (*pageSequence)(nil)

func renderProfile() types.CandidateProfile {
	return types.CandidateProfile{
		Experience: []string{"E1", "E2", "E3", "E4", "E5"},
		Projects:   []string{"P1", "P2", "P3"},
		Skills:     []string{"Go"},
		Education:  []string{"BSc Computer Science, MIT, 2015"},
	}
}

func TestRender_FirstAttemptSucceeds(t *testing.T) {
	compiler := &mockCompiler{}
	asm := NewAssembler(55)
	profile := renderProfile()
	initial := asm.Assemble(profile)

	r := NewRenderer(asm, compiler, &pageSequence{pages: []int{1}}, 3, nil)
	result, err := r.Render(context.Background(), profile, initial, Heading{Title: "Go Engineer", Company: "R&D"})
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, []byte("%PDF"), result.Artifact)
	require.Len(t, result.RenderAttempts, 1)
	assert.Equal(t, 1, result.RenderAttempts[0].Attempt)
	assert.Empty(t, result.FinalTrims)

	require.Len(t, compiler.sources, 1)
	source := compiler.sources[0]
	assert.True(t, strings.HasPrefix(source, `\documentclass`))
	assert.Contains(t, source, initial.LaTeXSource)
	assert.Contains(t, source, `R\&D`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(source), `\end{document}`))
}

func TestRender_TrimsUntilOnePage(t *testing.T) {
	compiler := &mockCompiler{}
	asm := NewAssembler(55)
	profile := renderProfile()

	r := NewRenderer(asm, compiler, &pageSequence{pages: []int{2, 2, 1}}, 3, nil)
	result, err := r.Render(context.Background(), profile, asm.Assemble(profile), Heading{})
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	require.Len(t, result.RenderAttempts, 3)
	assert.Empty(t, result.RenderAttempts[0].Trims)
	assert.Len(t, result.RenderAttempts[1].Trims, 1)
	assert.Len(t, result.RenderAttempts[2].Trims, 2)
	assert.Contains(t, result.FinalTrims[0], "removed experience bullet 'E5")
	assert.Contains(t, result.FinalTrims[1], "removed experience bullet 'E4")
	assert.NotContains(t, compiler.sources[2], `\resumeItem{E4}`)
	assert.Len(t, profile.Experience, 5)
}

func TestRender_Exhausted(t *testing.T) {
	compiler := &mockCompiler{
		CompileFunc: func(_ context.Context, _ string) ([]byte, string, error) {
			return []byte("%PDF"), strings.Repeat("L", 800), nil
		},
	}
	asm := NewAssembler(55)
	profile := renderProfile()

	r := NewRenderer(asm, compiler, &pageSequence{pages: []int{3, 2}}, 2, nil)
	result, err := r.Render(context.Background(), profile, asm.Assemble(profile), Heading{})
	require.NoError(t, err)

	assert.False(t, result.Succeeded())
	assert.Equal(t, OverflowMessage, result.Error)
	assert.Empty(t, result.PDFPath)
	assert.Nil(t, result.Artifact)
	assert.Equal(t, 2, result.PageCount)
	require.Len(t, result.RenderAttempts, 2)
	assert.Len(t, result.RenderAttempts[0].LogExcerpt, LogExcerptChars)
	assert.Len(t, result.FinalTrims, 2)
}

func TestRender_CompileFailureCountsZeroPages(t *testing.T) {
	compiler := &mockCompiler{
		CompileFunc: func(_ context.Context, _ string) ([]byte, string, error) {
			return nil, "! Undefined control sequence.", &latex.CompilationError{Message: "PDF was not generated"}
		},
	}
	asm := NewAssembler(55)
	profile := renderProfile()

	r := NewRenderer(asm, compiler, latex.NewToolPageCounter(), 2, nil)
	result, err := r.Render(context.Background(), profile, asm.Assemble(profile), Heading{})
	require.NoError(t, err)

	assert.False(t, result.Succeeded())
	assert.Equal(t, 0, result.PageCount)
	assert.Equal(t, "! Undefined control sequence.", result.RenderAttempts[0].LogExcerpt)
}

func TestRender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	compiler := &mockCompiler{
		CompileFunc: func(_ context.Context, _ string) ([]byte, string, error) {
			cancel()
			return nil, "", errors.New("killed")
		},
	}
	asm := NewAssembler(55)
	r := NewRenderer(asm, compiler, &pageSequence{pages: []int{1}}, 3, nil)

	_, err := r.Render(ctx, renderProfile(), asm.Assemble(renderProfile()), Heading{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrimForOverflow_Priority(t *testing.T) {
	steps := []struct {
		profile  types.CandidateProfile
		expected string
	}{
		{types.CandidateProfile{Experience: []string{"a", "b", "c", "d"}, Projects: []string{"p", "q", "r"}}, "removed experience bullet 'd"},
		{types.CandidateProfile{Experience: []string{"a", "b", "c"}, Projects: []string{"p", "q", "r"}}, "removed project bullet 'r"},
		{types.CandidateProfile{Experience: []string{"a", "b", "c"}, Projects: []string{"p"}}, "dropped project 'p"},
		{types.CandidateProfile{Experience: []string{"a", "b", "c"}}, "collapsed older experience 'c"},
		{types.CandidateProfile{Experience: []string{"a"}, Education: []string{"BSc, MIT"}}, "reduced education detail"},
		{types.CandidateProfile{Experience: []string{"a"}, Education: []string{"BSc"}}, "no-op"},
	}

	for _, step := range steps {
		_, changes := TrimForOverflow(step.profile)
		require.Len(t, changes, 1)
		assert.Contains(t, changes[0], step.expected)
	}
}

func TestTrimForOverflow_CollapsesEducation(t *testing.T) {
	profile := types.CandidateProfile{Education: []string{"BSc Computer Science, MIT, 2015", "MBA"}}
	out, _ := TrimForOverflow(profile)
	assert.Equal(t, []string{"BSc Computer Science", "MBA"}, out.Education)
	assert.Equal(t, "BSc Computer Science, MIT, 2015", profile.Education[0])
}

func TestWrapDocument_EscapesHeading(t *testing.T) {
	doc, err := WrapDocument(DocumentData{Heading: Heading{Title: "C# Dev", Company: "A&B"}, Body: `\section{Experience}`})
	require.NoError(t, err)
	assert.Contains(t, doc, `C\# Dev`)
	assert.Contains(t, doc, `\small{A\&B}`)
	assert.Contains(t, doc, `\section{Experience}`)
	assert.Contains(t, doc, `\newcommand{\resumeItem}`)
}

func TestWrapDocument_NoHeading(t *testing.T) {
	doc, err := WrapDocument(DocumentData{Body: "BODY"})
	require.NoError(t, err)
	assert.NotContains(t, doc, `\begin{center}`)
	assert.Contains(t, doc, "BODY")
}
