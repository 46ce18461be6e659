// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"errors"
)

// Sentinel errors for file-level extraction failures.
//
// Syntax errors are not listed here: they surface as *selector.ParseError.
var (
	// ErrUnsupportedKind indicates an unknown extraction kind name, for
	// example in an extension override.
	ErrUnsupportedKind = errors.New("unsupported kind")

	// ErrFileTooLarge indicates that content exceeds Options.MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent indicates content that is not valid UTF-8 text.
	ErrInvalidContent = errors.New("invalid content")
)
