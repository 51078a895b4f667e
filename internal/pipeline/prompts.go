package pipeline

import "github.com/dvloznov/statement-extractor/internal/llm"

// Every prompt takes a single {text} input.
const inputText = "text"

// CleanPrompt strips everything except transaction lines and records the
// account type as the first output line.
var CleanPrompt = llm.Prompt{
	Name: "clean",
	Template: "You are preparing text extracted from a bank or credit card statement for transaction parsing.\n\n" +
		"First decide which kind of account the statement belongs to:\n" +
		"- CREDIT_CARD for credit card statements\n" +
		"- DEBIT_CHECKING for current, checking or debit card accounts\n" +
		"- SAVINGS for savings accounts\n\n" +
		"Output rules:\n" +
		"1. The first line of the output must be exactly: ACCOUNT_TYPE = <CREDIT_CARD|DEBIT_CHECKING|SAVINGS>\n" +
		"2. Remove legal notices, marketing, contact details, addresses, personal data, page headers and footers, " +
		"column headings, interest rate tables and summary boxes.\n" +
		"3. Keep every line that carries transaction data (a date, an amount, a merchant or description). " +
		"Do not change dates, amounts or descriptions.\n" +
		"4. Keep lines starting with \"--- PAGE\" as they are.\n" +
		"5. Output plain text only, with no commentary.\n\n" +
		"Statement text:\n{text}\n",
}

// StructurePrompt turns cleaned lines into TRANSACTION_START/END blocks.
var StructurePrompt = llm.Prompt{
	Name: "structure",
	Template: "Convert the bank statement lines below into transaction blocks.\n\n" +
		"The text contains a line \"ACCOUNT_TYPE = ...\". Map it to SOURCE:\n" +
		"- CREDIT_CARD -> credit\n" +
		"- DEBIT_CHECKING -> debit\n" +
		"- SAVINGS -> savings\n\n" +
		"Sign convention for AMOUNT:\n" +
		"- credit: purchases, fees and interest are positive (TRANSACTION_TYPE expense); " +
		"payments and refunds are negative (TRANSACTION_TYPE income).\n" +
		"- debit and savings: money in is positive (TRANSACTION_TYPE income); " +
		"money out is negative (TRANSACTION_TYPE expense).\n\n" +
		"Write one block per transaction, exactly in this format:\n" +
		"TRANSACTION_START\n" +
		"DATE: YYYY-MM-DD\n" +
		"AMOUNT: <signed number without currency symbol>\n" +
		"SOURCE: <credit|debit|savings>\n" +
		"TRANSACTION_TYPE: <income|expense>\n" +
		"DESCRIPTION: <merchant or description>\n" +
		"TRANSACTION_END\n\n" +
		"Leave out a transaction when its amount is zero, when its date, description or source is missing, " +
		"or when its type contradicts the sign convention.\n" +
		"Output only the blocks, separated by blank lines.\n\n" +
		"Text:\n{text}\n",
}

// ExtractPrompt turns a group of blocks into a JSON array.
var ExtractPrompt = llm.Prompt{
	Name: "extract",
	Template: "Convert each TRANSACTION_START ... TRANSACTION_END block below into a JSON object with these keys:\n" +
		"- \"amount\": number, copied with its sign from AMOUNT\n" +
		"- \"description\": string from DESCRIPTION\n" +
		"- \"category\": a short spending category such as \"Groceries\", \"Transport\", \"Entertainment\" " +
		"or \"Salary\", or null when unclear\n" +
		"- \"transaction_type\": \"income\" or \"expense\" from TRANSACTION_TYPE\n" +
		"- \"source\": \"credit\", \"debit\" or \"savings\" from SOURCE\n" +
		"- \"timestamp\": the DATE written as \"YYYY-MM-DDT00:00:00\"\n\n" +
		"Return ONLY a JSON array with one object per block, in block order.\n" +
		"Do not use Markdown or code fences. Output must begin with \"[\" and end with \"]\".\n\n" +
		"Blocks:\n{text}\n",
}
