package bounce

// bodyRules is evaluated top to bottom against the decoded bounce body;
// the first match wins. MTA signatures that name the address come first,
// then causes from specific to generic, then auto-replies.
var bodyRules = []Rule{
	// MTA signatures carrying the recipient address.
	rule("0169", CategoryUnknown, body(`(?s)can't\s+create\s+output.*?<{addr}>`),
		sample("Can't create output ... <user@example.com>")),
	rule("0195", CategoryUnknown, body(`<{addr}>\.\.\.\s*(?:user unknown|unknown user|no such user)`),
		sample("<user@example.com>... User unknown")),
	rule("0196", CategoryUnknown, body(`<{addr}>:[^\n]*\n?[^\n]*(?:user unknown in (?:local|virtual) (?:recipient|alias|mailbox) table|recipient address rejected)`),
		sample("<user@example.com>: Recipient address rejected: User unknown in local recipient table")),
	rule("0197", CategoryUnknown, body(`<{addr}>:\s*\n?[^\n]*sorry, no mailbox here by that name`),
		sample("<user@example.com>:\nSorry, no mailbox here by that name. (#5.1.1)")),
	rule("0198", CategoryUnknown, body(`{addr}[>"']?\s*\n\s*(?:unknown local-part|unrouteable address)`),
		sample("  user@example.com\n    Unrouteable address")),
	rule("0190", CategoryUnknown, body(`{addr}'?\s+on\s+[^\n]*\n\s*the e-mail account does not exist`),
		sample("'user@example.com' on 2/7/2008 9:41 AM\n  The e-mail account does not exist at the organization")),
	rule("0168", CategoryFull, body(`the message to {addr}\s[^\n]*bounce[^\n]*quota exceed`),
		sample("The message to user@example.com is bounced because : Quota exceed the hard limit")),
	rule("0126", CategoryFull, body(`quota\s+exceeded[^\n]*\n?[^\n]*<{addr}>`),
		sample("mail receiving quota exceeded\n<user@example.com>")),
	rule("0181", CategoryInactive, body(`{addr}[^\n]*\n?[^\n]*inactive account`),
		sample("user@example.com\n  inactive account")),
	rule("0199", CategoryUnknown, body(`resolver\.adr\.recipnotfound|recipientnotfound`),
		sample("Remote Server returned '550 5.1.1 RESOLVER.ADR.RecipNotFound; not found'")),
	rule("0194", CategoryUnknown, body(`not listed in (?:public |the )?(?:domino )?(?:name & address book|directory)`),
		sample("User John Doe (user@example.com) not listed in Domino Directory")),
	rule("0044", CategoryUnknown, body(`(?s)554.*delivery error.*this user doesn't have a \S+ account`),
		sample("554 delivery error: dd This user doesn't have a yahoo.com account (user@yahoo.com)")),
	rule("0174", CategoryUnknown, body(`=D5=CA=BA=C5=B2=BB=B4=E6=D4=DA`),
		sample("=D5=CA=BA=C5=B2=BB=B4=E6=D4=DA")),

	// Mailbox over quota.
	rule("0182", CategoryFull, body(`over[^\n]*quota`),
		sample("Delivery failed: Over quota")),
	rule("0158", CategoryFull, body(`quota\s+exceed|exceed(?:ed|s)?\s+(?:the\s+|his\s+|her\s+|their\s+)?(?:storage|mailbox|disk)?\s*quota`),
		sample("User disk quota exceeded")),
	rule("0166", CategoryFull, body(`(?:mailbox|inbox|mail box|account)[^\n]{0,40}\bfull\b`),
		sample("user@example.com: mailbox is full")),
	rule("0183", CategoryFull, body(`(?:disk|storage|mailbox|inbox) (?:space|storage|size) (?:limit )?(?:exceeded|is full|reached)|(?:insufficient|not enough) (?:disk |storage )?space|exceeded storage allocation|mailbox (?:is )?(?:over|at) (?:capacity|its limit)`),
		sample("552 Requested mail action aborted: exceeded storage allocation")),

	// Account closed or disabled.
	rule("0171", CategoryInactive, body(`user is inactive`),
		sample("user@example.com: user is inactive")),
	rule("0185", CategoryInactive, body(`(?:account|mailbox|user|address)[^\n]{0,40}(?:is |has been )(?:disabled|deactivated|suspended|closed|expired|locked|terminated)`),
		sample("The account user@example.com has been disabled")),
	rule("0186", CategoryInactive, body(`(?:account|mailbox|address)[^\n]{0,40}no longer (?:active|available|valid|in use|exists?)|dormant account`),
		sample("This address is no longer in use")),

	// Destination domain.
	rule("0238", CategoryDNSUnknown, body(`domain\s+name\s+not\s+found|(?:couldn't|could not|can't|cannot)\s+find\s+any\s+host\s+named|host or domain name not found|name or service not known`),
		sample("DNS Error: Domain name not found")),
	rule("0049", CategoryDNSUnknown, body(`unrouteable\s+mail\s+domain`),
		sample("Unrouteable mail domain \"example.invalid\"")),
	rule("0187", CategoryDNSUnknown, body(`no (?:valid )?mx (?:record|host)s?|mx lookup failed|domain (?:does not exist|not found|has no mail server)|name service error|host (?:name )?(?:not found|unknown)`),
		sample("Name service error for name=example.invalid type=MX: Host not found")),
	rule("0188", CategoryDNSLoop, body(`loops? back to myself|too many hops|mail loop(?:ing)? detected|routing loop|loop detected`),
		sample("mail for example.com loops back to myself")),

	// Refused for policy, content or size.
	rule("0250", CategoryAntispam, body(`(?:message|mail|email)[^\n]{0,60}(?:identified|classified|detected|flagged|rejected|blocked)[^\n]{0,20}(?:as )?(?:spam|junk)|spam (?:detected|rejected|blocked|filter|score)|rejected as spam|blocked as spam|considered (?:as )?spam|looks like spam|contains? spam`),
		sample("550 5.7.1 Message rejected as spam by Content Filtering")),
	rule("0189", CategoryAntispam, body(`blacklist|blocklist|\b(?:rbl|dnsbl)\b|spamhaus|spamcop|barracuda|blocked using|listed (?:at|in|on) [^\n]*(?:\.org|\.net|rbl)`),
		sample("Client host [192.0.2.1] blocked using zen.spamhaus.org")),
	rule("0200", CategoryAntispam, body(`\b(?:spf|dkim|dmarc)\b[^\n]*(?:fail|reject)`),
		sample("550 5.7.1 SPF check failed")),
	rule("0201", CategoryAntispam, body(`poor reputation|policy reasons|(?:sender|ip|host|domain)[^\n]{0,40}(?:blocked|banned|denied)[^\n]{0,40}(?:policy|reputation|abuse)`),
		sample("550 5.7.1 Our system has detected an unusual rate of unsolicited mail; rejected for policy reasons")),
	rule("0211", CategoryContentReject, body(`message content rejected|content (?:was )?rejected|rejected (?:due to|because of) (?:its )?content|prohibited (?:content|attachment)|banned attachment|(?:virus|malware)[^\n]{0,40}(?:detected|found|infected)`),
		sample("554 5.6.0 Message content rejected")),
	rule("0202", CategoryOversize, body(`message (?:size )?(?:exceeds|too (?:big|large))|message (?:is )?larger than|exceeds? (?:the )?(?:maximum )?(?:allowed )?(?:message )?size|size limit exceeded`),
		sample("552 5.3.4 Message size exceeds fixed maximum message size")),
	rule("0043", CategoryLatinOnly, body(`does not accept[^\r\n]*non-western`),
		sample("This account does not accept mail with non-Western characters")),

	// An out-of-office reply stays one whatever address it says is gone.
	rule("0215", CategoryOutOfOffice, allOf(autoSubmitted(), anyOf(
		body(`out of (?:the )?office|on (?:annual |parental |sick |maternity )?leave|on (?:vacation|holiday)|away from (?:the|my) office`),
		subject(`out of (?:the )?office|\booo\b|abwesenheit|absence`),
	)),
		extract(fromHeader("From")),
		sample("Auto-Submitted: auto-replied\n\nI am out of the office until Monday")),

	// Recipient does not exist.
	rule("0236", CategoryUnknown, body(`user\s+unknown`),
		sample("user@example.com: User unknown")),
	rule("0249", CategoryUnknown, body(`unknown\s+user`),
		sample("Unknown user: user@example.com")),
	rule("0237", CategoryUnknown, body(`no\s+such\s+address\s+here`),
		sample("user@example.com:\nNo such address here")),
	rule("0157", CategoryUnknown, body(`no\s+mailbox`),
		sample("user@example.com: no mailbox")),
	rule("0164", CategoryUnknown, body(`can't\s+find[^\n]*mailbox`),
		sample("Can't find the mailbox of user@example.com")),
	rule("0179", CategoryUnknown, body(`unrouteable\s+address`),
		sample("user@example.com: Unrouteable address")),
	rule("0240", CategoryUnknown, body(`unknown\s+or\s+illegal\s+alias`),
		sample("user@example.com: unknown or illegal alias")),
	rule("0239", CategoryUnknown, body(`(?:user|recipient|mailbox|address|account|addressee)[^\n]{0,60}(?:does not|doesn't|did not|do not|not) exist`),
		sample("user@example.com: user does not exist")),
	rule("0204", CategoryUnknown, body(`no such (?:user|recipient|mailbox|address|account|person|local user)|(?:user|recipient|mailbox|address|account) not found|(?:invalid|bad) (?:recipient|mailbox|destination mailbox)|recipient (?:unknown|rejected)|not a valid (?:user|mailbox|recipient)|is not a known user|no account by that name`),
		sample("550 No such user (user@example.com)")),
	// Postfix replies that lead with "<address>:" are taken by 0196.
	rule("0046", CategoryUnknown, body(`(?s)550 5\.1\.1.*recipient address rejected`),
		sample("550 5.1.1 Recipient address rejected: user@example.com")),
	rule("0045", CategoryUnknown, body(`(?s)550.*requested.*action.*not.*taken:.*mailbox.*unavailable`),
		sample("550 Requested action not taken: mailbox unavailable")),
	rule("0206", CategoryUnknown, body(`(?:#|\bstatus:?\s*)5\.1\.1\b`),
		sample("Sorry, I couldn't find the user (#5.1.1)")),

	// Transient trouble on the receiving side.
	rule("0163", CategoryDefer, body(`resources\s+temporarily\s+unavailable`),
		sample("Resources temporarily unavailable")),
	rule("0172", CategoryInternalError, body(`input/output\s+error`), severity(SeverityHard),
		sample("user@example.com: input/output error")),
	rule("0173", CategoryInternalError, body(`can\s*not\s+open\s+new\s+email\s+file`), severity(SeverityHard),
		sample("can not open new email file")),
	rule("0256", CategoryDelayed, body(`(?:delivery|message)[^\n]{0,40}(?:has been |is )?delayed|has not (?:yet )?been delivered|will (?:continue to )?(?:be )?retr(?:y|ied)|still trying|message still undelivered`),
		sample("This is a warning message only; delivery to user@example.com has been delayed")),
	rule("0208", CategoryConcurrent, body(`too many (?:concurrent )?(?:e?smtp )?(?:connections|sessions)|concurrent (?:connection|session) limit|exceeded (?:the )?(?:sending|connection) rate`),
		sample("421 Too many concurrent SMTP connections")),
	rule("0209", CategoryCommandReject, body(`syntax error|command (?:rejected|unrecognized|not recognized)|bad sequence of commands|relay(?:ing)? (?:access )?(?:denied|not permitted|prohibited)|we do not relay`),
		sample("554 5.7.1 Relay access denied")),
	rule("0210", CategoryInternalError, body(`(?:internal|local) (?:server )?(?:error|problem)|system (?:error|failure)|unexpected error`),
		sample("451 Local error in processing")),
	rule("0207", CategoryDefer, body(`(?:try|retry) again later|temporar(?:il)?y (?:deferred|rejected|unavailable|failure|problem)|greylist|graylist|(?:connection|connect to)[^\n]{0,80}(?:timed out|timeout|refused|reset)`),
		sample("451 Temporary failure, please try again later")),
	rule("0212", CategoryUserReject, body(`(?:sender|message|mail) (?:is |was |has been )?(?:blocked|refused|rejected) by (?:the )?(?:recipient|user)|recipient (?:has )?(?:blocked|refused|rejected) (?:you|your|the sender)|does not (?:wish|want) to receive`),
		sample("Your message was refused by the recipient")),

	// Generic delivery failures naming an address.
	rule("0001", CategoryUnknown, body(`(?s)delivery to the following (?:recipient|recipients) failed permanently:\s*{addr}`),
		sample("Delivery to the following recipient failed permanently:\n\n     user@example.com")),
	rule("0013", CategoryUnknown, body(`delivery[^\n\r]+failed\S*\s+{addr}\s`),
		sample("Delivery to the following recipients failed.\n\n       user@example.com\n")),
	rule("0048", CategoryUnknown, body(`550[^\n]*in reply to rcpt to command`),
		sample("550 5.1.1 ... (in reply to RCPT TO command)")),
	rule("0047", CategoryUnknown, body(`550[^\n]*in reply to end of data command`),
		sample("550 ... (in reply to end of DATA command)")),

	// Looks like a bounce but says nothing about why.
	rule("0214", CategoryOther, subject(`undeliver|delivery (?:status )?notification|returned mail|failure notice|mail delivery (?:failed|failure|system|subsystem)|delivery failure|non-?delivery`),
		sample("Subject: Undeliverable: your message")),

	// Auto-replies come after every wording rule: MTA bounces carry
	// Auto-Submitted too.
	rule("0216", CategoryOutOfOffice, subject(`out of (?:the )?office|\booo\b|abwesenheit|absence|on vacation|on holiday`),
		extract(fromHeader("From")),
		sample("Subject: Out of Office: your message")),
	rule("0167", CategoryAutoreply, body(`(?m)^autoreply message from {addr}`),
		sample("AutoReply message from user@example.com")),
	rule("0217", CategoryAutoreply, autoSubmitted(),
		extract(fromHeader("From")),
		sample("Auto-Submitted: auto-replied")),
	rule("0218", CategoryAutoreply, subject(`^\s*(?:auto(?:matic)?[ -]?(?:reply|response|answer)|autoreply|auto:|automatische antwort|r[ée]ponse automatique|respuesta autom[áa]tica)`),
		extract(fromHeader("From")),
		sample("Subject: Automatic reply: your message")),
}

// autoSubmitted matches the headers auto-responders set. Auto-Submitted: no
// marks a message written by a person.
func autoSubmitted() predicate {
	return anyOf(
		header("Auto-Submitted", `^\s*auto-(?:replied|generated|notified)`),
		header("X-Autoreply", `\S`),
		header("X-Autorespond", `\S`),
		header("X-Mail-Autoreply", `\S`),
		header("X-Autoreply-From", `\S`),
		header("Precedence", `^\s*auto_reply`),
	)
}
