package healing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specFixture = `import { test, expect } from '@playwright/test';

test.describe('Checkout', () => {
  test('checkout', async ({ page }) => {
    await page.goto('https://shop.example.test/products');
    await page.getByRole('button', { name: 'Add to cart' }).click({ timeout: 5000 });
    await expect(page.getByText('Order confirmed')).toBeVisible();
  });
});
`

func writeSpec(t *testing.T) *SpecApplier {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkout.spec.ts")
	require.NoError(t, os.WriteFile(path, []byte(specFixture), 0644))
	return &SpecApplier{SpecPath: path}
}

func readSpec(t *testing.T, a *SpecApplier) string {
	t.Helper()
	data, err := os.ReadFile(a.SpecPath)
	require.NoError(t, err)
	return string(data)
}

func TestApplyIncreaseTimeoutDoublesExisting(t *testing.T) {
	a := writeSpec(t)
	desc, err := a.Apply(context.Background(), "checkout", FixIncreaseTimeout, ClassifiedFailure{})
	require.NoError(t, err)
	assert.Contains(t, desc, "doubled")
	assert.Contains(t, readSpec(t, a), "timeout: 10000")
}

func TestApplyIncreaseTimeoutInsertsWhenNoneExist(t *testing.T) {
	a := writeSpec(t)
	src := readSpec(t, a)
	require.NoError(t, os.WriteFile(a.SpecPath,
		[]byte(strings.ReplaceAll(src, "{ timeout: 5000 }", "")), 0644))

	_, err := a.Apply(context.Background(), "checkout", FixIncreaseTimeout, ClassifiedFailure{})
	require.NoError(t, err)
	assert.Contains(t, readSpec(t, a), "test.setTimeout(60000);")
}

func TestApplyAddWaitBeforeAssertion(t *testing.T) {
	a := writeSpec(t)
	_, err := a.Apply(context.Background(), "checkout", FixAddWaitForSelector, ClassifiedFailure{})
	require.NoError(t, err)

	src := readSpec(t, a)
	waitIdx := strings.Index(src, "await page.waitForLoadState('domcontentloaded');")
	expectIdx := strings.Index(src, "await expect(")
	require.GreaterOrEqual(t, waitIdx, 0)
	assert.Less(t, waitIdx, expectIdx)
}

func TestApplyWaitForNavigationAfterGoto(t *testing.T) {
	a := writeSpec(t)
	_, err := a.Apply(context.Background(), "checkout", FixWaitForNavigation, ClassifiedFailure{})
	require.NoError(t, err)

	src := readSpec(t, a)
	gotoIdx := strings.Index(src, "await page.goto(")
	loadIdx := strings.Index(src, "await page.waitForLoadState('load');")
	require.GreaterOrEqual(t, loadIdx, 0)
	assert.Greater(t, loadIdx, gotoIdx)
}

func TestApplyRegenerativeFixes(t *testing.T) {
	a := writeSpec(t)
	a.Regenerate = func(context.Context) (string, error) {
		return "// regenerated\n", nil
	}

	for _, fix := range []FixType{FixRegenerateStep, FixUpdateSelector, FixUpdateAssertionValue, FixUpdateURL} {
		desc, err := a.Apply(context.Background(), "checkout", fix, ClassifiedFailure{})
		require.NoError(t, err, "fix %s", fix)
		assert.Contains(t, desc, "regenerated")
	}
	assert.Equal(t, "// regenerated\n", readSpec(t, a))
}

func TestApplyRegenerateErrorsPropagate(t *testing.T) {
	a := writeSpec(t)
	a.Regenerate = func(context.Context) (string, error) {
		return "", errors.New("resolver unavailable")
	}

	_, err := a.Apply(context.Background(), "checkout", FixRegenerateStep, ClassifiedFailure{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolver unavailable")
	assert.Equal(t, specFixture, readSpec(t, a), "failed fixes leave the spec untouched")
}

func TestApplyNoEffectIsAnError(t *testing.T) {
	a := writeSpec(t)
	require.NoError(t, os.WriteFile(a.SpecPath, []byte("const x = 1;\n"), 0644))

	_, err := a.Apply(context.Background(), "checkout", FixAddWaitForSelector, ClassifiedFailure{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no effect")
}

