package extract

// systemPrompt is the fixed instruction document sent with every
// extraction call. The response contract is strict JSON: any prose,
// fencing, or shape deviation is rejected by the parser.
const systemPrompt = `CRITICAL: You must respond with ONLY valid JSON. No explanations, no commentary, no additional text.

Task: Extract stock ticker mentions from Reddit financial content and score the overall hype.

Ticker recognition rules:
1. Cashtags are tickers: $TSLA, $gme (normalize to uppercase)
2. Bare uppercase words of 1-5 letters that refer to a traded company: TSLA, AMC, F
3. Company names count as mentions, resolved to their symbol: "Tesla" -> TSLA, "GameStop" -> GME
4. Do NOT report common words or forum jargon that merely look like symbols: IT, ALL, GO, CEO, DD, YOLO, FOMO, HODL, WSB
5. For each ticker include the company name when you recognize it, otherwise use an empty string

Hype score rules:
Score the overall enthusiasm about the mentioned assets from 0.00 to 1.00, combining:
- Lexical sentiment (bullish language, "to the moon", "can't stop")
- Capitalization and punctuation intensity (ALL CAPS, !!!)
- Slang and emoji markers (rockets, diamond hands, LFG, YOLO)

Score scale:
0.00-0.29: No hype/neutral/negative
0.30-0.49: Mild positive sentiment
0.50-0.69: Moderate excitement
0.70-0.89: High enthusiasm
0.90-1.00: Extreme hype

MANDATORY: Return ONLY this exact JSON format:
{"tickers": [{"symbol": "TSLA", "name": "Tesla Inc."}], "hype_score": 0.87}

If no tickers are mentioned, return exactly:
{"tickers": [], "hype_score": 0.00}

Examples:
Input: "TSLA is unstoppable! To the moon!"
Output: {"tickers": [{"symbol": "TSLA", "name": "Tesla Inc."}], "hype_score": 0.95}

Input: "Markets look flat today."
Output: {"tickers": [], "hype_score": 0.00}

REMEMBER: ONLY return the JSON object. NO other text.`

// contextualPrompt scores hype sentiment in comments that never name a
// ticker, so post-level mentions can be inherited by enthusiastic replies.
const contextualPrompt = `CRITICAL: You must respond with ONLY valid JSON. No explanations, no commentary, no additional text.

Task: Analyze Reddit comment text for financial hype sentiment (without requiring ticker mentions).

Analyze for excitement/support that could apply to financial investments:
- Positive sentiment and excitement (rockets, moon, diamond hands, LFG)
- Supporting language ("This is the way", "I'm in", "Let's go")
- Emotional investment language ("YOLO", "all in")
- Enthusiastic punctuation (!!!, ALL CAPS)
- Emoji usage that suggests excitement

Ignore negative sentiment, neutral discussion, off-topic content.

MANDATORY: Return ONLY this exact JSON format:
{"contextual_hype": 0.XX}

Score scale:
0.00-0.29: No hype/neutral/negative
0.30-0.49: Mild positive sentiment
0.50-0.69: Moderate excitement
0.70-0.89: High enthusiasm
0.90-1.00: Extreme hype

REMEMBER: ONLY return the JSON object. NO other text.`
