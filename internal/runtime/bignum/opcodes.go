package bignum

var opcodeNames = map[uint32]string{
	0x00: "STOP",
	0x01: "ADD",
	0x02: "MUL",
	0x03: "SUB",
	0x04: "DIV",
	0x10: "LT",
	0x14: "EQ",
	0x15: "ISZERO",
	0x19: "NOT",
	0x34: "CALLVALUE",
	0x35: "CALLDATALOAD",
	0x36: "CALLDATASIZE",
	0x39: "CODECOPY",
	0x50: "POP",
	0x51: "MLOAD",
	0x52: "MSTORE",
	0x55: "SSTORE",
	0x56: "JUMP",
	0x57: "JUMPI",
	0x5b: "JUMPDEST",
	0x60: "PUSH1",
	0x61: "PUSH2",
	0x62: "PUSH3",
	0x63: "PUSH4",
	0x7c: "PUSH29",
	0x80: "DUP1",
	0x81: "DUP2",
	0x82: "DUP3",
	0x90: "SWAP1",
	0x91: "SWAP2",
	0x92: "SWAP3",
	0xf3: "RETURN",
	0xfd: "REVERT",
	0xfe: "INVALID",
}

// OpcodeName returns the EVM mnemonic for code, or "UNK".
func OpcodeName(code uint32) string {
	if name, ok := opcodeNames[code]; ok {
		return name
	}
	return "UNK"
}
