package descriptions

// Tool descriptions with practical examples and the order tools are usually called in

const (
	// Session tools
	OpenDocumentDescription = `Open a PDF form and start an editing session.

**When to use:** First step of every workflow. Returns the session_id used by all other tools and one page surface per page (width and height in PDF points).

**Examples:**
• "Open contracts/lease.pdf so we can mark its blanks"
• "Start a session for form.pdf and tell me how many pages it has"

**Best practices:** Paths are resolved inside the configured document directory. Close the session when done to free its regions.`

	CloseDocumentDescription = `Close an editing session and discard all of its regions.

**When to use:** The document is finished or should be reset. Any preview files created for the session are removed.`

	UpdateSurfaceDescription = `Report where a page is currently drawn on screen.

**When to use:** Every time the viewer renders, scrolls, zooms or resizes a page. Pointer events are converted using the most recent surface position, never a cached one.

**Parameters:** left/top are the screen position of the page's top-left corner in pixels, display_scale is pixels per PDF point. Set mounted=false when the page is no longer rendered; pointer events on an unmounted page are rejected.`

	SetPlacementModeDescription = `Turn region drawing on or off.

**When to use:** Before forwarding drag gestures. Pointer presses are ignored while placement mode is off.`

	PointerEventDescription = `Forward a pointer event from the viewer.

**When to use:** Drawing a region by hand: send "down" on the page, any number of "move" events, then "up". The response carries the selection phase (idle, dragging, awaiting_index) and the live rectangle for visual feedback.

**Common workflows:**
1. down → move → up → pdf_assign_index
2. up reports "selection too narrow" or "selection too short" when the drag covers less than the minimum region size; nothing is created and the selection returns to idle.`

	AssignIndexDescription = `Give the pending selection its position index and create the region.

**When to use:** After a pointer "up" left the selection in awaiting_index. The index matches the numbered blank in the document, e.g. "(3)" is index 3.

**Rejections:** A duplicate or non-positive index is rejected and the selection stays pending, so you can retry with another index or cancel.`

	CancelSelectionDescription = `Drop the current drag or pending selection without creating a region.`

	// Region tools
	ListRegionsDescription = `List the regions of a session ordered by page and position index, optionally filtered to one page.`

	UpdateRegionDescription = `Move, resize or renumber an existing region.

**Parameters:** Only the given fields change. Changing the height recomputes the region's font size (height / 1.2). Renumbering to an index already in use is rejected.`

	RemoveRegionDescription = `Delete a region by id. Removing an unknown id is not an error.`

	DetectPlaceholdersDescription = `Find numbered blanks such as "____(1)____", "....(2)...." or "(3)" in the document text and register them as regions.

**When to use:** Before drawing regions by hand; most generated forms carry their placeholders in the text layer.

**Why it's useful:** Each detected region covers the whole token, records the original text so its filler padding can be preserved, and uses the text's own font size. Tokens below the minimum size or whose index already has a region are skipped and reported.`

	// Output tools
	PlanReplacementDescription = `Preview how each value would be fitted into its region without writing a document.

**Response:** For every region: the text that will be drawn, the font size, which strategy was used (keep_original, reduce_filler, scale_font) and whether it fits. Overflowing values are flagged for manual review.

**Parameters:** values maps position index to text, e.g. {"1": "Jane Doe", "2": "2026-10-14"}.`

	FillDocumentDescription = `Fill the document: cover every region and draw its value, then export the result.

**When to use:** Final step. Regions without a value are left untouched and reported.

**Parameters:** values maps position index to text. filename names the exported file in the output directory (".pdf" is added when missing); with preview=true a temporary file:// URL is returned instead.

**Best practices:** Run pdf_plan_replacement first to spot values that will not fit. The fill never aborts on a single field: problems are returned as warnings next to the exported file.`

	ServerInfoDescription = `Get server information, directories, font status, open sessions and the list of available tools.`
)
