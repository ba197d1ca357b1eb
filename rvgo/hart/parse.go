package hart

// Functions to parse the instruction field values from different types of RISC-V instructions.

func parseOpcode(instr uint32) uint32 {
	return instr & 0x7F
}

func parseRd(instr uint32) uint8 {
	return uint8((instr >> 7) & 0x1F)
}

func parseFunct3(instr uint32) uint32 {
	return (instr >> 12) & 0x7
}

func parseRs1(instr uint32) uint8 {
	return uint8((instr >> 15) & 0x1F)
}

func parseRs2(instr uint32) uint8 {
	return uint8((instr >> 20) & 0x1F)
}

func parseFunct7(instr uint32) uint32 {
	return instr >> 25
}

func parseImmTypeI(instr uint32) uint64 {
	return uint64(int64(int32(instr) >> 20))
}

func parseImmTypeS(instr uint32) uint64 {
	return uint64(int64(int32(instr&0xFE000000)>>20)) | uint64((instr>>7)&0x1F)
}

func parseImmTypeB(instr uint32) uint64 {
	return uint64(int64(int32(instr&0x80000000)>>19)) | // sign: bits 63..12
		uint64((instr&0x80)<<4) | // bit 7 -> 11
		uint64((instr>>20)&0x7E0) | // bits 30:25 -> 10:5
		uint64((instr>>7)&0x1E) // bits 11:8 -> 4:1
}

func parseImmTypeU(instr uint32) uint64 {
	return uint64(int64(int32(instr & 0xFFFFF000)))
}

func parseImmTypeJ(instr uint32) uint64 {
	return uint64(int64(int32(instr&0x80000000)>>11)) | // sign: bits 63..20
		uint64(instr&0xFF000) | // bits 19:12
		uint64((instr>>9)&0x800) | // bit 20 -> 11
		uint64((instr>>20)&0x7FE) // bits 30:21 -> 10:1
}

func parseCSR(instr uint32) uint16 {
	return uint16(instr >> 20)
}
