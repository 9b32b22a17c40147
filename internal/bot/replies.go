package bot

import (
	"github.com/walkingday-ai/walkbot/internal/model"
)

// Menu button labels. The transport adapter matches inbound text against
// these to classify button presses.
const (
	ButtonWalk      = "Go for a Walk"
	ButtonQuestion  = "Ask Question"
	ButtonStock     = "Tech Stock Update"
	ButtonImage     = "Send Image With Caption"
	ButtonSummarize = "Summarize Text"
	ButtonAbout     = "About Bot"
)

// MenuButtons lists every menu label in display order.
var MenuButtons = []string{
	ButtonWalk,
	ButtonQuestion,
	ButtonStock,
	ButtonImage,
	ButtonSummarize,
	ButtonAbout,
}

const (
	welcomeText = "Welcome to WalkingDay bot! I can help you with finding the best time for a walk, tech stock updates, questions, image captions, and text summaries. Pick an option:"

	aboutText = "This bot helps you with finding the best time for a walk based on the weather forecast. Feel free to explore the options!"

	askLocationText = "Please provide your location (city name):"
	askQuestionText = "Please send your question:"
	askSymbolText   = "Please send a stock ticker symbol (for example NVDA):"
	askImageText    = "Please send an image with a caption:"
	askSummaryText  = "Please send the text you want summarized:"

	useMenuText = "Please use the menu to select an option."

	quotaExceededText = "You have reached your request limit for today. Please try again tomorrow."

	locationRequiredText = "Please set your location first by choosing \"Go for a Walk\" from the menu."

	locationRetryText = "Could not find location. Please try again with a valid city name."

	weatherUnavailableText = "Weather information is missing, please try later."

	stockUnavailableText = "Stock information is missing, please try later."

	symbolRetryText = "Could not find that symbol. Please try again with a valid ticker."

	modelUnavailableText = "Failed to fetch a response from the language model. Please try later."

	summaryFailedText = "Could not summarize that text. Please try later."

	internalErrorText = "Something went wrong on our side. Please try later."
)

// menuKeyboard renders the main menu as a reply keyboard, two buttons per row.
func menuKeyboard() *model.Keyboard {
	var rows [][]string
	for i := 0; i < len(MenuButtons); i += 2 {
		end := i + 2
		if end > len(MenuButtons) {
			end = len(MenuButtons)
		}
		rows = append(rows, MenuButtons[i:end])
	}
	return &model.Keyboard{
		Rows:            rows,
		Resize:          true,
		OneTimeKeyboard: true,
	}
}
