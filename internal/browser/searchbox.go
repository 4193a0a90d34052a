package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// searchBox drives the map's search input element.
type searchBox struct {
	el *rod.Element
}

// Clear focuses the input and deletes its content.
func (b *searchBox) Clear(ctx context.Context) error {
	el := b.el.Context(ctx)

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click search box: %w", err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("browser: select search text: %w", err)
	}
	if err := el.Type(input.Backspace); err != nil {
		return fmt.Errorf("browser: delete search text: %w", err)
	}

	return nil
}

// Input types text into the input.
func (b *searchBox) Input(ctx context.Context, text string) error {
	if err := b.el.Context(ctx).Input(text); err != nil {
		return fmt.Errorf("browser: type search text: %w", err)
	}

	return nil
}

// Submit presses Enter in the input.
func (b *searchBox) Submit(ctx context.Context) error {
	if err := b.el.Context(ctx).Type(input.Enter); err != nil {
		return fmt.Errorf("browser: submit search: %w", err)
	}

	return nil
}
